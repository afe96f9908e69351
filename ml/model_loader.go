package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

const (
	ModelRandomForest = "random_forest"
	ModelDecisionTree = "decision_tree"
	ModelLinear       = "linear"
)

// Artifact is the JSON export of a trained pipeline.
type Artifact struct {
	Type         string              `json:"type"`
	Columns      []string            `json:"columns"`
	Categories   map[string][]string `json:"categories"`
	Trees        [][]TreeNode        `json:"trees,omitempty"`
	Intercept    float64             `json:"intercept,omitempty"`
	Coefficients []float64           `json:"coefficients,omitempty"`
}

func LoadModel(modelType, path string) (Regressor, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model artifact: %w", err)
	}
	var artifact Artifact
	if err := json.Unmarshal(payload, &artifact); err != nil {
		return nil, fmt.Errorf("decode model artifact: %w", err)
	}
	if artifact.Type == "" {
		artifact.Type = modelType
	}
	if modelType != "" && artifact.Type != modelType {
		return nil, fmt.Errorf("artifact is a %s model, configured %s", artifact.Type, modelType)
	}
	return BuildModel(artifact)
}

// BuildModel checks the artifact schema against FeatureNames and assembles
// the pipeline.
func BuildModel(artifact Artifact) (*Pipeline, error) {
	expected := FeatureNames()
	if len(artifact.Columns) != len(expected) {
		return nil, fmt.Errorf("artifact has %d columns, want %d", len(artifact.Columns), len(expected))
	}
	for i, col := range expected {
		if artifact.Columns[i] != col {
			return nil, fmt.Errorf("artifact column %d is %q, want %q", i, artifact.Columns[i], col)
		}
	}
	encoder, err := NewOneHotEncoder(artifact.Columns, artifact.Categories)
	if err != nil {
		return nil, err
	}

	var estimator Estimator
	switch artifact.Type {
	case ModelRandomForest, ModelDecisionTree:
		if len(artifact.Trees) == 0 {
			return nil, errors.New("artifact has no trees")
		}
		if artifact.Type == ModelDecisionTree && len(artifact.Trees) != 1 {
			return nil, fmt.Errorf("decision tree artifact has %d trees", len(artifact.Trees))
		}
		trees := make([]*RegressionTree, len(artifact.Trees))
		for i, nodes := range artifact.Trees {
			tree, err := NewRegressionTree(nodes, encoder.Width())
			if err != nil {
				return nil, fmt.Errorf("tree %d: %w", i, err)
			}
			trees[i] = tree
		}
		if artifact.Type == ModelDecisionTree {
			estimator = trees[0]
		} else {
			forest, err := NewForest(trees)
			if err != nil {
				return nil, err
			}
			estimator = forest
		}
	case ModelLinear:
		if len(artifact.Coefficients) != encoder.Width() {
			return nil, fmt.Errorf("artifact has %d coefficients, encoder width is %d", len(artifact.Coefficients), encoder.Width())
		}
		estimator = &Linear{
			Intercept:    artifact.Intercept,
			Coefficients: append([]float64(nil), artifact.Coefficients...),
		}
	default:
		return nil, errors.New("unsupported model type")
	}

	return &Pipeline{Encoder: encoder, Estimator: estimator}, nil
}
