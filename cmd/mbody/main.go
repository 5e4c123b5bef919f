package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/mbody/internal/engine"
	"github.com/san-kum/mbody/internal/graph"
	"github.com/san-kum/mbody/internal/scene"
	"github.com/san-kum/mbody/internal/tui"
)

var (
	worldFile  string
	duration   float64
	integrator string
	exportPath string
	plotJoint  string
	sampleStep int
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "mbody",
		Short: "multibody dynamics sandbox",
	}
	rootCmd.PersistentFlags().StringVar(&worldFile, "world", "", "world file (yaml)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "debug logging")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a world",
		RunE:  runWorld,
	}
	runCmd.Flags().Float64Var(&duration, "time", 10.0, "duration (s)")
	runCmd.Flags().StringVar(&integrator, "integrator", "", "override integrator")
	runCmd.Flags().StringVar(&exportPath, "export", "", "export trajectory json")
	runCmd.Flags().StringVar(&plotJoint, "plot-joint", "", "plot joint coordinate (model/joint[/axis])")
	runCmd.Flags().IntVar(&sampleStep, "sample-every", 10, "record every n steps")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "interactive stepping view",
		RunE:  liveWorld,
	}

	graphCmd := &cobra.Command{
		Use:   "graph",
		Short: "dump the spanning-tree decomposition of each model",
		RunE:  dumpGraphs,
	}

	infoCmd := &cobra.Command{
		Use:   "info",
		Short: "print engine parameters",
		RunE:  printInfo,
	}

	rootCmd.AddCommand(runCmd, liveCmd, graphCmd, infoCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func logger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func loadWorld() (*scene.World, error) {
	if worldFile == "" {
		return nil, fmt.Errorf("--world is required")
	}
	return scene.Load(worldFile)
}

func buildEngine(w *scene.World) (*engine.Engine, error) {
	if integrator != "" {
		w.Integrator = integrator
	}
	eng, err := engine.New(w, logger())
	if err != nil {
		return nil, err
	}
	for _, m := range w.Models {
		if err := eng.AddModel(m); err != nil {
			return nil, err
		}
	}
	return eng, nil
}

func runWorld(cmd *cobra.Command, args []string) error {
	w, err := loadWorld()
	if err != nil {
		return err
	}
	eng, err := buildEngine(w)
	if err != nil {
		return err
	}

	rec := engine.NewRecorder(eng, w.Name)
	rec.Sample()

	steps := int(duration / w.StepSize)
	if sampleStep < 1 {
		sampleStep = 1
	}
	for i := 0; i < steps; i++ {
		if err := eng.Step(); err != nil {
			return err
		}
		if (i+1)%sampleStep == 0 {
			rec.Sample()
		}
		eng.DrainDirtyPoses()
	}

	fmt.Printf("world: %s\n", w.Name)
	fmt.Printf("sim time: %.3f s, %d steps\n", eng.SimTime(), steps)

	if plotJoint != "" {
		if err := plotSeries(rec, plotJoint); err != nil {
			return err
		}
	}
	if exportPath != "" {
		if err := rec.ExportJSON(exportPath); err != nil {
			return err
		}
		fmt.Printf("exported: %s\n", exportPath)
	}
	return nil
}

func plotSeries(rec *engine.Recorder, ref string) error {
	parts := strings.Split(ref, "/")
	if len(parts) < 2 {
		return fmt.Errorf("plot-joint wants model/joint[/axis], got %q", ref)
	}
	joint := parts[1]
	axis := 0
	if len(parts) > 2 {
		fmt.Sscanf(parts[2], "%d", &axis)
	}
	data := rec.Series(joint, axis)
	if len(data) == 0 {
		return fmt.Errorf("no samples for joint %q axis %d", joint, axis)
	}
	graph := asciigraph.Plot(data,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption(fmt.Sprintf("%s[%d] vs time", joint, axis)),
	)
	fmt.Println(graph)
	return nil
}

func liveWorld(cmd *cobra.Command, args []string) error {
	w, err := loadWorld()
	if err != nil {
		return err
	}
	eng, err := buildEngine(w)
	if err != nil {
		return err
	}
	var rows []tui.JointRef
	for _, m := range w.Models {
		for _, j := range m.Joints {
			rows = append(rows, tui.JointRef{Model: m.Name, Joint: j.Name})
		}
	}
	return tui.Run(tui.NewLive(eng, w.Name, rows))
}

func dumpGraphs(cmd *cobra.Command, args []string) error {
	w, err := loadWorld()
	if err != nil {
		return err
	}
	for _, m := range w.Models {
		g := graph.NewMaker()
		for _, jt := range []struct {
			name       scene.JointType
			mobilities int
		}{
			{scene.Revolute, 1},
			{scene.Revolute2, 2},
			{scene.Prismatic, 1},
			{scene.Universal, 2},
			{scene.Screw, 1},
			{scene.Ball, 3},
		} {
			if err := g.AddJointType(string(jt.name), jt.mobilities, false); err != nil {
				return err
			}
		}
		if _, err := g.AddBody("world", graph.WorldMass, false); err != nil {
			return err
		}
		for _, l := range m.Links {
			if _, err := g.AddBody(l.Name, l.Mass, l.MustBeBase); err != nil {
				return err
			}
		}
		for _, j := range m.Joints {
			if err := g.AddJoint(j.Name, string(j.Type), j.Parent, j.Child, j.MustBreak); err != nil {
				return err
			}
		}
		if err := g.Generate(); err != nil {
			return err
		}
		fmt.Printf("model %s\n", m.Name)
		if err := g.Dump(os.Stdout); err != nil {
			return err
		}
		fmt.Println()
	}
	return nil
}

func printInfo(cmd *cobra.Command, args []string) error {
	w, err := loadWorld()
	if err != nil {
		return err
	}
	eng, err := buildEngine(w)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(eng.Info())
}
