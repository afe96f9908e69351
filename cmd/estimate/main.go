// Command estimate runs the laptop price estimator from the terminal.
package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"laptopprice/app"
	"laptopprice/config"
	"laptopprice/logger"
	"laptopprice/ml"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type options struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "estimate",
		Short:         "Estimate laptop prices from hardware specifications",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config.yaml (defaults and PRICE_* env apply)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "write structured logs to stdout")

	root.AddCommand(newPredictCmd(opts), newOptionsCmd(opts), newHistoryCmd(opts))
	return root
}

func (o *options) open() (*app.App, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	zlog := zap.NewNop()
	if o.verbose {
		zlog = logger.New(logger.Config{Level: cfg.Log.Level})
	}
	return app.New(cfg, zlog)
}

func newPredictCmd(opts *options) *cobra.Command {
	var (
		spec        ml.LaptopSpec
		touchscreen string
		ips         string
	)
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Estimate the price range for one laptop",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if spec.TouchScreen, err = ml.ParseYesNo(ml.ColTouchScreen, touchscreen); err != nil {
				return err
			}
			if spec.IPS, err = ml.ParseYesNo(ml.ColIPS, ips); err != nil {
				return err
			}

			a, err := opts.open()
			if err != nil {
				return err
			}
			defer a.Close()

			est, err := a.Estimate(cmd.Context(), spec)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "The predicted price of this configuration is between %s\n", est.Display)
			fmt.Fprintf(out, "ppi=%.2f log_price=%.4f\n", est.Features.PPI, est.Result.LogPrice)
			if est.RecordID != 0 {
				fmt.Fprintf(out, "saved as record %d\n", est.RecordID)
			}
			if est.Warning != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", est.Warning)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&spec.Company, "company", "", "brand")
	f.StringVar(&spec.TypeName, "type", "", "laptop type, e.g. Notebook")
	f.IntVar(&spec.Ram, "ram", 8, "RAM in GB")
	f.Float64Var(&spec.Weight, "weight", 2.0, "weight in kg")
	f.StringVar(&touchscreen, "touchscreen", "No", "Yes or No")
	f.StringVar(&ips, "ips", "No", "Yes or No")
	f.StringVar(&spec.CPU, "cpu", "", "CPU name")
	f.IntVar(&spec.HDD, "hdd", 0, "HDD in GB")
	f.IntVar(&spec.SSD, "ssd", 256, "SSD in GB")
	f.StringVar(&spec.GPU, "gpu", "", "GPU brand")
	f.StringVar(&spec.OpSys, "os", "", "operating system")
	f.Float64Var(&spec.ScreenSize, "screen-size", 15.6, "diagonal in inches")
	f.StringVar(&spec.Resolution, "resolution", "1920x1080", "screen resolution WxH")
	for _, name := range []string{"company", "type", "cpu", "gpu", "os"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func newOptionsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "options",
		Short: "List the values the form offers",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open()
			if err != nil {
				return err
			}
			defer a.Close()

			o := a.Catalog.Options()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			rows := []struct {
				name   string
				values []string
			}{
				{"company", o.Companies},
				{"type", o.Types},
				{"ram", ints(o.Ram)},
				{"cpu", o.CPUs},
				{"hdd", ints(o.HDD)},
				{"ssd", ints(o.SSD)},
				{"gpu", o.GPUs},
				{"os", o.OpSys},
				{"resolution", o.Resolutions},
			}
			for _, row := range rows {
				fmt.Fprintf(w, "%s\t%s\n", row.name, strings.Join(row.values, ", "))
			}
			return w.Flush()
		},
	}
}

func newHistoryCmd(opts *options) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the most recent stored estimates",
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive")
			}
			a, err := opts.open()
			if err != nil {
				return err
			}
			defer a.Close()
			if a.Store == nil {
				return fmt.Errorf("persistence is disabled; set store.enabled or PRICE_STORE_ENABLED=true")
			}

			records, err := a.Store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tPREDICTED AT\tCOMPANY\tTYPE\tCPU\tPRICE")
			for _, r := range records {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
					r.ID,
					r.PredictedAt.Format("2006-01-02 15:04:05"),
					r.Spec.Company,
					r.Spec.TypeName,
					r.Spec.CPU,
					a.Formatter.Amount(r.Result.Amount),
				)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of records")
	return cmd
}

func ints(values []int) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = fmt.Sprint(v)
	}
	return out
}
