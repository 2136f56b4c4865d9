package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"lsai/internal/generation"
	"lsai/internal/manager"
)

// Interactive sampling defaults; a little longer and warmer than the API.
const (
	askLength      = 300
	askTemperature = 0.8
)

var exampleQuestions = []string{
	"How do I implement a function in Python?",
	"Can you explain async/await in JavaScript?",
	"I need help with a SQL query using JOIN",
	"How do I create a modern React component?",
	"Show me an efficient sorting algorithm in Java",
	"How do I properly handle exceptions in C#?",
	"I have a problem with database connections",
}

type generator interface {
	Generate(ctx context.Context, req generation.Request) (generation.Result, error)
}

func newAskCommand(opts *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ask [question...]",
		Short: "Ask the model a question, or start an interactive session",
		Example: `  lsai ask How do I make a SQL query with JOIN?
  lsai ask`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			st := newStyles(out)
			fmt.Fprintln(out, st.render(st.title, "LibreScript AI Assistant"))
			fmt.Fprintln(out, st.rule("=", 35))

			svc, err := newService(opts.cfg)
			if err != nil {
				return err
			}
			defer svc.Close()
			fmt.Fprintln(out, "Loading model...")
			if err := svc.Load(cmd.Context()); err != nil {
				if manager.IsNoCheckpoint(err) {
					fmt.Fprintln(out, st.render(st.warn, "Error: No fine-tuned model found!"))
					fmt.Fprintf(out, "You must first train the model with: %s train\n", cliName)
				} else {
					fmt.Fprintf(out, "Try retraining with: %s train\n", cliName)
				}
				return err
			}
			fmt.Fprintln(out, st.render(st.ok, "Model loaded successfully!"))

			if len(args) > 0 {
				return askOnce(cmd.Context(), out, svc, strings.Join(args, " "))
			}
			in, err := newLineReader(cmd.InOrStdin(), out)
			if err != nil {
				return err
			}
			defer in.Close()
			var p settingsPrompter = &plainSettings{in: in, out: out}
			if isTerminal(cmd.InOrStdin()) && isTerminal(out) {
				p = surveySettings{}
			}
			return interactive(cmd.Context(), in, out, svc, p)
		},
	}
}

func askOnce(ctx context.Context, out io.Writer, g generator, question string) error {
	fmt.Fprintf(out, "Question: %s\n", question)
	res, err := g.Generate(ctx, generation.Request{Prompt: question, Length: askLength, Temperature: askTemperature})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\n%s\n", res.Response)
	return nil
}

// lineReader yields one line of user input at a time.
type lineReader interface {
	ReadLine(prompt string) (string, error)
	Close() error
}

// newLineReader uses readline on a terminal and a plain scanner otherwise,
// so piped input behaves like a script.
func newLineReader(in io.Reader, out io.Writer) (lineReader, error) {
	if isTerminal(in) && isTerminal(out) {
		rl, err := readline.NewEx(&readline.Config{
			InterruptPrompt: "^C",
			EOFPrompt:       "quit",
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize readline: %w", err)
		}
		return &rlReader{rl: rl}, nil
	}
	return &scanReader{sc: bufio.NewScanner(in), out: out}, nil
}

type rlReader struct{ rl *readline.Instance }

func (r *rlReader) ReadLine(prompt string) (string, error) {
	r.rl.SetPrompt(prompt)
	line, err := r.rl.Readline()
	if errors.Is(err, readline.ErrInterrupt) {
		return "", io.EOF
	}
	return line, err
}

func (r *rlReader) Close() error { return r.rl.Close() }

type scanReader struct {
	sc  *bufio.Scanner
	out io.Writer
}

func (r *scanReader) ReadLine(prompt string) (string, error) {
	fmt.Fprint(r.out, prompt)
	if !r.sc.Scan() {
		if err := r.sc.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return r.sc.Text(), nil
}

func (r *scanReader) Close() error { return nil }

// interactive runs the question loop until quit or end of input.
func interactive(ctx context.Context, in lineReader, out io.Writer, g generator, p settingsPrompter) error {
	st := newStyles(out)
	fmt.Fprintln(out)
	fmt.Fprintln(out, st.render(st.title, "LibreScript AI Interactive Mode"))
	fmt.Fprintln(out, st.rule("=", 40))
	fmt.Fprintln(out, "Type 'quit' or 'exit' to quit")
	fmt.Fprintln(out, "Type 'help' to see example questions")
	fmt.Fprintln(out, "Type 'settings' to modify parameters")
	fmt.Fprintln(out)

	length, temperature := askLength, askTemperature
	for {
		line, err := in.ReadLine("Your question: ")
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(out, "\nGoodbye and see you soon!")
				return nil
			}
			return err
		}
		input := strings.TrimSpace(line)
		switch strings.ToLower(input) {
		case "quit", "exit", "q":
			fmt.Fprintln(out, "Goodbye and see you soon!")
			return nil
		case "help":
			showHelp(out, st)
			continue
		case "settings":
			length, temperature = configureSettings(out, p, length, temperature)
			continue
		case "":
			fmt.Fprintln(out, "Please enter a question.")
			continue
		}

		fmt.Fprintln(out, "\nGenerating response...")
		fmt.Fprintln(out, st.rule("-", 50))
		res, err := g.Generate(ctx, generation.Request{Prompt: input, Length: length, Temperature: temperature})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintf(out, "An error occurred: %v. Please try again!\n", err)
			continue
		}
		fmt.Fprintf(out, "\n%s\n\n", res.Response)
		fmt.Fprintln(out, st.rule("-", 50))
	}
}

func showHelp(out io.Writer, st styles) {
	fmt.Fprintln(out, "\n"+st.render(st.label, "Example questions:"))
	fmt.Fprintln(out, st.rule("-", 30))
	for _, q := range exampleQuestions {
		fmt.Fprintf(out, "• %s\n", q)
	}
	fmt.Fprintln(out)
}

// settingsPrompter asks for a new value, returning "" to keep the current one.
type settingsPrompter interface {
	Ask(message, current string, validate func(string) error) (string, error)
}

func configureSettings(out io.Writer, p settingsPrompter, length int, temperature float64) (int, float64) {
	fmt.Fprintln(out, "\nCurrent settings:")
	fmt.Fprintf(out, "   Response length: %d tokens\n", length)
	fmt.Fprintf(out, "   Creativity: %v\n\n", temperature)

	ls, err := p.Ask(fmt.Sprintf("New length (%d-%d, current: %d): ", generation.MinLength, generation.MaxLength, length),
		strconv.Itoa(length), validateLength)
	if err != nil {
		fmt.Fprintln(out, "Invalid values, settings unchanged")
		return length, temperature
	}
	if ls != "" {
		if err := validateLength(ls); err != nil {
			fmt.Fprintln(out, err)
		} else {
			length, _ = strconv.Atoi(strings.TrimSpace(ls))
		}
	}
	ts, err := p.Ask(fmt.Sprintf("New creativity (%.1f-%.1f, current: %v): ", generation.MinTemperature, generation.MaxTemperature, temperature),
		strconv.FormatFloat(temperature, 'f', -1, 64), validateTemperature)
	if err != nil {
		fmt.Fprintln(out, "Invalid values, settings unchanged")
		return length, temperature
	}
	if ts != "" {
		if err := validateTemperature(ts); err != nil {
			fmt.Fprintln(out, err)
		} else {
			temperature, _ = strconv.ParseFloat(strings.TrimSpace(ts), 64)
		}
	}
	fmt.Fprintf(out, "Settings updated! Length: %d, Creativity: %v\n", length, temperature)
	return length, temperature
}

func validateLength(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return errors.New("Length must be a whole number")
	}
	if n < generation.MinLength || n > generation.MaxLength {
		return fmt.Errorf("Length must be between %d and %d tokens", generation.MinLength, generation.MaxLength)
	}
	return nil
}

func validateTemperature(s string) error {
	t, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return errors.New("Creativity must be a number")
	}
	if !(t >= generation.MinTemperature && t <= generation.MaxTemperature) {
		return fmt.Errorf("Creativity must be between %.1f and %.1f", generation.MinTemperature, generation.MaxTemperature)
	}
	return nil
}

// plainSettings reads answers from the same line reader as the questions.
type plainSettings struct {
	in  lineReader
	out io.Writer
}

func (p *plainSettings) Ask(message, current string, validate func(string) error) (string, error) {
	line, err := p.in.ReadLine(message)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// surveySettings prompts on the terminal and re-asks until the value is valid.
type surveySettings struct{}

func (surveySettings) Ask(message, current string, validate func(string) error) (string, error) {
	var ans string
	err := survey.AskOne(&survey.Input{
		Message: strings.TrimSuffix(strings.TrimSpace(message), ":"),
		Default: current,
	}, &ans, survey.WithValidator(func(v interface{}) error {
		s, _ := v.(string)
		return validate(s)
	}))
	if err != nil {
		return "", err
	}
	return ans, nil
}
