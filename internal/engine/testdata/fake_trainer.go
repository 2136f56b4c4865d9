// fake_trainer mimics the trainer command line used by the exec engine.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type multi []string

func (m *multi) String() string     { return strings.Join(*m, ",") }
func (m *multi) Set(v string) error { *m = append(*m, v); return nil }

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: fake_trainer download|finetune|sample [flags]")
		os.Exit(2)
	}
	sub := os.Args[1]
	fs := flag.NewFlagSet(sub, flag.ExitOnError)
	model := fs.String("model", "", "")
	modelsDir := fs.String("models-dir", "models", "")
	run := fs.String("run", "", "")
	ckpt := fs.String("checkpoint-dir", "checkpoint", "")
	steps := fs.Int("steps", 0, "")
	restore := fs.String("restore", "", "")
	dataset := fs.String("dataset", "", "")
	fs.Int("print-every", 0, "")
	fs.Int("sample-every", 0, "")
	fs.Int("save-every", 0, "")
	length := fs.Int("length", 0, "")
	temp := fs.String("temperature", "", "")
	fs.Int("top-k", 0, "")
	fs.String("top-p", "", "")
	var stops multi
	fs.Var(&stops, "stop", "")
	prefix := fs.String("prefix", "", "")
	_ = fs.Parse(os.Args[2:])

	switch sub {
	case "download":
		dir := filepath.Join(*modelsDir, *model)
		must(os.MkdirAll(dir, 0o755))
		must(os.WriteFile(filepath.Join(dir, "hparams.json"), []byte("{}"), 0o644))
		fmt.Println("downloaded", *model)
	case "finetune":
		if _, err := os.Stat(*dataset); err != nil {
			fmt.Fprintln(os.Stderr, "dataset missing:", err)
			os.Exit(1)
		}
		dir := filepath.Join(*ckpt, *run)
		must(os.MkdirAll(dir, 0o755))
		start := 0
		if *restore == "latest" {
			if b, err := os.ReadFile(filepath.Join(dir, "counter")); err == nil {
				fmt.Sscanf(strings.TrimSpace(string(b)), "%d", &start)
			}
		}
		end := start + *steps
		fmt.Printf("[%d | loss 1.0]\n", end)
		must(os.WriteFile(filepath.Join(dir, fmt.Sprintf("model-%d.data", end)), []byte("w"), 0o644))
		must(os.WriteFile(filepath.Join(dir, "counter"), []byte(fmt.Sprint(end)), 0o644))
		must(os.WriteFile(filepath.Join(dir, "checkpoint"), []byte(fmt.Sprintf("model_checkpoint_path: \"model-%d\"\n", end)), 0o644))
	case "sample":
		if os.Getenv("FAKE_TRAINER_FAIL") == "1" {
			fmt.Fprintln(os.Stderr, "sampling exploded")
			os.Exit(3)
		}
		fmt.Fprintf(os.Stderr, "sampling run=%s length=%d temperature=%s stops=%s\n", *run, *length, *temp, stops.String())
		fmt.Print(*prefix + " Use a JOIN clause.\nUse a JOIN clause.\n" + strings.Join(stops, ""))
	default:
		fmt.Fprintln(os.Stderr, "unknown subcommand", sub)
		os.Exit(2)
	}
}

func must(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
