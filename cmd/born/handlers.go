package main

import (
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/born-ml/valgrad/internal/gradcheck"
	"github.com/born-ml/valgrad/internal/optim"
	"github.com/born-ml/valgrad/internal/parallel"
	"github.com/born-ml/valgrad/internal/serialization"
	"github.com/born-ml/valgrad/internal/train"
)

// TrainHandler trains the selected task and prints the final metrics.
func TrainHandler(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("task")
	seed, _ := cmd.Flags().GetInt64("seed")
	epochs, _ := cmd.Flags().GetInt("epochs")
	lr, _ := cmd.Flags().GetFloat64("lr")
	batch, _ := cmd.Flags().GetInt("batch")
	optName, _ := cmd.Flags().GetString("optimizer")
	momentum, _ := cmd.Flags().GetFloat64("momentum")
	resume, _ := cmd.Flags().GetString("resume")
	save, _ := cmd.Flags().GetString("save")

	//nolint:gosec // demo data and initialization, not security-critical
	rng := rand.New(rand.NewSource(seed))
	t, err := buildTask(name, rng)
	if err != nil {
		return err
	}

	var opt interface {
		optim.Optimizer
		serialization.Stateful
	}
	switch optName {
	case "sgd":
		opt = optim.NewSGD(t.model.Parameters(), optim.SGDConfig{LR: lr, Momentum: momentum})
	case "adam":
		opt = optim.NewAdam(t.model.Parameters(), optim.AdamConfig{LR: lr})
	default:
		return errors.Errorf("unknown optimizer %q (want sgd or adam)", optName)
	}

	startEpoch := 0
	if resume != "" {
		meta, err := resumeFrom(resume, t, opt, optName)
		if err != nil {
			return err
		}
		startEpoch = meta.Epoch
	}

	ctrl := &train.Control{}
	trainer := &train.Trainer{
		Model:     t.model,
		Loss:      t.loss,
		Optimizer: opt,
		Data:      t.data,
		Epochs:    epochs,
		BatchSize: batch,
		Seed:      seed,
		Shuffle:   true,
		Logger:    slog.Default(),
		Control:   ctrl,
	}

	slog.Info("training", "task", t.name, "model", t.model.String(),
		"rows", t.data.Len(), "epochs", epochs, "optimizer", optName, "lr", lr)

	var history train.History
	done := make(chan struct{})
	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error {
		defer close(done)
		h, err := trainer.Run(ctx)
		history = h
		return err
	})
	g.Go(func() error {
		return watchSignals(done, ctrl)
	})
	if err := g.Wait(); err != nil {
		return errors.Wrap(err, "train")
	}

	loss, acc, err := train.Evaluate(t.model, t.loss, t.data, 0.5)
	if err != nil {
		return err
	}
	if save != "" {
		meta := serialization.CheckpointMeta{Epoch: startEpoch + len(history), Loss: loss, OptimizerType: optName}
		if err := serialization.SaveCheckpoint(save, t.model, opt, meta); err != nil {
			return err
		}
		slog.Info("checkpoint saved", "path", save, "epoch", meta.Epoch)
	}
	last := history.Last()
	renderTable(cmd.OutOrStdout(), []string{"METRIC", "VALUE"}, [][]string{
		{"task", t.name},
		{"epochs", strconv.Itoa(len(history))},
		{"final loss", formatFloat(loss)},
		{"accuracy", formatFloat(acc)},
		{"last epoch loss", formatFloat(last.Loss)},
		{"skipped steps", strconv.Itoa(skipped(history))},
	})
	return nil
}

// resumeFrom restores t's parameters from path. Optimizer buffers are only
// restored when the checkpoint was written by the same optimizer.
func resumeFrom(path string, t *task, opt serialization.Stateful, optName string) (serialization.CheckpointMeta, error) {
	header, _, err := serialization.Load(path)
	if err != nil {
		return serialization.CheckpointMeta{}, errors.Wrap(err, "resume")
	}
	if cm := header.CheckpointMeta; cm != nil && cm.OptimizerType != optName {
		slog.Warn("checkpoint optimizer differs, loading parameters only",
			"checkpoint", cm.OptimizerType, "optimizer", optName)
		opt = nil
	}
	meta, err := serialization.LoadCheckpoint(path, t.model, opt)
	if err != nil {
		return meta, errors.Wrap(err, "resume")
	}
	slog.Info("resumed", "path", path, "epoch", meta.Epoch)
	return meta, nil
}

// watchSignals stops training after the current cycle on SIGINT or SIGTERM.
func watchSignals(done <-chan struct{}, ctrl *train.Control) error {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)

	select {
	case s := <-sig:
		slog.Warn("stopping after the current step", "signal", s.String())
		ctrl.Stop()
	case <-done:
	}
	return nil
}

func skipped(h train.History) int {
	n := 0
	for _, e := range h {
		n += e.Skipped
	}
	return n
}

// GradcheckHandler runs the built-in gradient check suite.
func GradcheckHandler(cmd *cobra.Command, args []string) error {
	seed, _ := cmd.Flags().GetInt64("seed")
	rtol, _ := cmd.Flags().GetFloat64("rtol")

	opts := gradcheck.DefaultOptions()
	if rtol > 0 {
		opts.RelTol = rtol
	}

	//nolint:gosec // test inputs, not security-critical
	rng := rand.New(rand.NewSource(seed))
	var data [][]string
	failed := 0
	results, err := gradcheck.CheckAll(gradcheck.Suite(rng), opts, parallel.DefaultConfig())
	if err != nil {
		return err
	}
	for _, res := range results {
		status := "ok"
		if !res.OK {
			status = "FAIL"
			failed++
		}
		data = append(data, []string{
			res.Name, strconv.Itoa(res.Checked),
			formatSci(res.MaxAbsErr), formatSci(res.MaxRelErr), status,
		})
	}
	renderTable(cmd.OutOrStdout(), []string{"CASE", "ELEMENTS", "MAX ABS ERR", "MAX REL ERR", "RESULT"}, data)

	if failed > 0 {
		return errors.Errorf("%d of %d gradient checks failed", failed, len(data))
	}
	return nil
}

// SummaryHandler prints the named parameters of a demo model.
func SummaryHandler(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("task")
	seed, _ := cmd.Flags().GetInt64("seed")

	//nolint:gosec // demo initialization, not security-critical
	t, err := buildTask(name, rand.New(rand.NewSource(seed)))
	if err != nil {
		return err
	}

	var data [][]string
	total := 0
	named := t.model.NamedParameters()
	for pair := named.Oldest(); pair != nil; pair = pair.Next() {
		p := pair.Value
		total += p.Size()
		data = append(data, []string{pair.Key, p.Shape().String(), strconv.Itoa(p.Size())})
	}
	data = append(data, []string{"total", "", strconv.Itoa(total)})

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, t.model.String())
	renderTable(w, []string{"NAME", "SHAPE", "SIZE"}, data)
	return nil
}

func renderTable(w io.Writer, header []string, data [][]string) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.SetAutoFormatHeaders(false)
	table.AppendBulk(data)
	table.Render()
}

func formatFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', 4, 64)
}

func formatSci(x float64) string {
	return strconv.FormatFloat(x, 'e', 2, 64)
}
