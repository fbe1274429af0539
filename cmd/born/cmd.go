package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/born-ml/valgrad/internal/envconfig"
	"github.com/born-ml/valgrad/internal/logutil"
)

const version = "v0.1.0"

// NewCLI builds the root command.
func NewCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "born",
		Short:         "Tensor autodiff engine with small training demos",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := envconfig.LogLevel()
			if verbose, _ := cmd.Flags().GetBool("verbose"); verbose && level > slog.LevelDebug {
				level = slog.LevelDebug
			}
			slog.SetDefault(logutil.NewLogger(cmd.ErrOrStderr(), level))
		},
	}
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log per-batch progress")

	for _, cmd := range []*cobra.Command{
		versionCmd(),
		trainCmd(),
		gradcheckCmd(),
		summaryCmd(),
	} {
		rootCmd.AddCommand(cmd)
	}
	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.ExactArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "born %s\n", version)
		},
	}
}

func trainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a demo model on a synthetic dataset",
		Long: `Train a demo model on a synthetic dataset.

Tasks:
  xor      2-8-1 tanh network on the XOR truth table
  blobs    2-8-1 relu network on two Gaussian clusters
  stripes  conv2d network telling horizontal from vertical stripes

Defaults come from BORN_EPOCHS, BORN_LR, BORN_BATCH_SIZE, BORN_OPTIMIZER
and BORN_SEED. An interrupt stops training after the current step; the
checkpoint given by --save is still written.`,
		Args: cobra.ExactArgs(0),
		RunE: TrainHandler,
	}
	addTaskFlags(cmd)
	cmd.Flags().Int("epochs", int(envconfig.Epochs()), "Number of passes over the dataset")
	cmd.Flags().Float64("lr", envconfig.LearningRate(), "Learning rate")
	cmd.Flags().Int("batch", int(envconfig.BatchSize()), "Mini-batch size (0 = whole dataset)")
	cmd.Flags().String("optimizer", envconfig.Optimizer(), "Optimizer: sgd or adam")
	cmd.Flags().Float64("momentum", 0.9, "SGD momentum")
	cmd.Flags().String("resume", "", "Load parameters and optimizer state from a .born checkpoint")
	cmd.Flags().String("save", "", "Write a .born checkpoint after training")
	return cmd
}

func gradcheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gradcheck",
		Short: "Compare analytic gradients of every operator with finite differences",
		Args:  cobra.ExactArgs(0),
		RunE:  GradcheckHandler,
	}
	cmd.Flags().Int64("seed", envconfig.Seed(), "Random seed for the generated inputs")
	cmd.Flags().Float64("rtol", 0, "Relative tolerance (0 = default)")
	return cmd
}

func summaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print the parameters of a demo model",
		Args:  cobra.ExactArgs(0),
		RunE:  SummaryHandler,
	}
	addTaskFlags(cmd)
	return cmd
}

func addTaskFlags(cmd *cobra.Command) {
	cmd.Flags().String("task", "xor", "Task: xor, blobs or stripes")
	cmd.Flags().Int64("seed", envconfig.Seed(), "Random seed for initialization, data and shuffling")
}
