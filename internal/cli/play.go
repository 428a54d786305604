package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"bodhiment-quiz/internal/app"
	"bodhiment-quiz/internal/config"
	"bodhiment-quiz/internal/domain"
	"bodhiment-quiz/internal/infra/memory"
	"bodhiment-quiz/internal/infra/postgres"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"
)

// NewPlayCmd runs a single quiz in the terminal.
func NewPlayCmd(configPath *string) *cobra.Command {
	var (
		file   string
		text   string
		userID string
	)
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a quiz in the terminal, answering with A-D",
		RunE: func(cmd *cobra.Command, args []string) error {
			input := text
			if file != "" {
				data, err := os.ReadFile(file)
				if err != nil {
					return err
				}
				input = string(data)
			}
			if strings.TrimSpace(input) == "" {
				return fmt.Errorf("provide study text with --file or --text")
			}

			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// Logs go to stderr so they do not interleave with the quiz.
			logger := newLogger(cmd.ErrOrStderr(), cfg)
			source, err := newQuestionSource(cfg, nil, logger)
			if err != nil {
				return err
			}
			hostCfg := app.HostConfig{Source: source, Settings: quizSettings(cfg), Logger: logger}
			if userID != "" && cfg.Postgres.URL != "" {
				pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
				if err != nil {
					return fmt.Errorf("connecting to postgres: %w", err)
				}
				defer pool.Close()
				hostCfg.Identity = memory.NewStaticIdentity(userID)
				hostCfg.Results = postgres.NewResultStore(pool)
			}

			host := app.NewHost(hostCfg)
			defer host.Close()
			return playQuiz(ctx, host, input, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "file with the study text")
	cmd.Flags().StringVar(&text, "text", "", "study text")
	cmd.Flags().StringVar(&userID, "user", "", "record the result for this user (needs postgres)")
	return cmd
}

// playQuiz drives one session from start to summary. Answers are read from
// in only while a question is open.
func playQuiz(ctx context.Context, host *app.Host, input string, in io.Reader, out io.Writer) error {
	views, cancel := host.Subscribe()
	defer cancel()

	fmt.Fprintln(out, "Generating questions...")
	if _, err := host.StartSession(ctx, input); err != nil {
		return err
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	var (
		shown    int
		revealed int
		awaiting bool
	)
	for {
		var answers <-chan string
		if awaiting {
			answers = lines
		}

		select {
		case <-ctx.Done():
			host.Exit()
			return ctx.Err()
		case line, ok := <-answers:
			if !ok {
				host.Exit()
				return fmt.Errorf("input closed before the quiz finished")
			}
			index, err := parseChoice(line)
			if err != nil {
				fmt.Fprintln(out, err)
				continue
			}
			if _, err := host.Select(index); err != nil {
				fmt.Fprintln(out, err)
				continue
			}
			awaiting = false
		case view := <-views:
			switch view.Phase {
			case domain.PhaseInProgress:
				if view.QuestionNumber != shown {
					// A timeout skips the reveal and goes straight on.
					if shown != 0 && revealed != shown {
						printTimeout(out, host, shown)
					}
					shown = view.QuestionNumber
					awaiting = true
					printQuestion(out, view)
				}
			case domain.PhaseAnswerRevealed:
				awaiting = false
				if view.QuestionNumber != revealed {
					revealed = view.QuestionNumber
					printReveal(out, view)
				}
			case domain.PhaseComplete:
				if shown != 0 && revealed != shown {
					printTimeout(out, host, shown)
				}
				if view.Summary != nil {
					fmt.Fprintf(out, "\nQuiz complete. Score: %d  Max streak: %d  Accuracy: %d%%\n",
						view.Summary.Score, view.Summary.MaxStreak, view.Summary.Accuracy)
				}
				return nil
			}
		}
	}
}

func printQuestion(out io.Writer, view domain.View) {
	fmt.Fprintf(out, "\nQuestion %d/%d (%ds): %s\n", view.QuestionNumber, view.QuestionCount, view.SecondsRemaining, view.Question)
	for i, option := range view.Options {
		fmt.Fprintf(out, "  %c) %s\n", 'A'+i, option)
	}
	fmt.Fprint(out, "> ")
}

func printReveal(out io.Writer, view domain.View) {
	if view.CorrectIndex == nil {
		return
	}
	correct := *view.CorrectIndex
	if view.SelectedAnswer != nil && *view.SelectedAnswer == correct {
		fmt.Fprintf(out, "Correct! Score %d, streak %d\n", view.Score, view.Streak)
		return
	}
	fmt.Fprintf(out, "Incorrect. The answer was %c) %s\n", 'A'+correct, view.Options[correct])
}

// printTimeout reports an unanswered question. number is 1-based.
func printTimeout(out io.Writer, host *app.Host, number int) {
	session := host.Session()
	if session == nil {
		return
	}
	questions := session.Questions()
	if number < 1 || number > len(questions) {
		return
	}
	q := questions[number-1]
	fmt.Fprintf(out, "\nTime's up. The answer was %c) %s\n", 'A'+q.CorrectIndex, q.Options[q.CorrectIndex])
}

// parseChoice accepts a letter (A, b) or a 1-based number.
func parseChoice(line string) (int, error) {
	line = strings.TrimSpace(line)
	if n, err := strconv.Atoi(line); err == nil && n > 0 {
		return n - 1, nil
	}
	if len(line) == 1 {
		c := strings.ToUpper(line)[0]
		if c >= 'A' && c <= 'Z' {
			return int(c - 'A'), nil
		}
	}
	return 0, fmt.Errorf("answer with a letter such as A or B")
}
