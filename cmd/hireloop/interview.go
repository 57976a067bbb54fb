package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"hireloop/internal/engine"
	"hireloop/internal/evaluator"
	"hireloop/internal/interview"
	"hireloop/internal/logging"
	"hireloop/internal/models"
	"hireloop/internal/policy"
	"hireloop/internal/router"
)

var (
	jobRole  string
	expLevel string
	minutes  int
)

// interviewCmd runs an interactive interview session on the terminal.
var interviewCmd = &cobra.Command{
	Use:   "interview",
	Short: "Run an interactive mock interview",
	Long: `Starts a timed two-round mock interview on the terminal.

Type your answer and finish it with an empty line. Commands:
  /time   show remaining time
  /skip   submit an empty answer and move on
  /end    end the interview and print the report`,
	RunE: func(cmd *cobra.Command, args []string) error {
		level := interview.ExperienceLevel(strings.ToLower(expLevel))
		switch level {
		case interview.LevelFresher, interview.LevelJunior, interview.LevelMid,
			interview.LevelSenior, interview.LevelLead:
		default:
			return fmt.Errorf("invalid --level %q (use fresher, junior, mid, senior, or lead)", expLevel)
		}
		if minutes <= 0 {
			return fmt.Errorf("--minutes must be positive, got %d", minutes)
		}

		gateway, err := models.Init(cfg.Models)
		if err != nil {
			return fmt.Errorf("initialize model gateway: %w", err)
		}
		logging.Boot("model gateway ready: embedder=%s", gateway.Embedder().Name())

		eng := engine.New(cfg,
			router.New(gateway.LanguageModel(), router.NewQuestionCache(cfg.Router.CacheCapacity)),
			policy.NewRegistry(cfg.Policy.RegistryCapacity, policy.Config{
				RewardWindow:   cfg.Policy.RewardWindow,
				RaiseThreshold: cfg.Policy.RaiseThreshold,
				LowerThreshold: cfg.Policy.LowerThreshold,
			}),
			evaluator.New(gateway.Embedder(), gateway.LanguageModel()),
		)

		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		return runInterview(ctx, eng)
	},
}

func init() {
	interviewCmd.Flags().StringVarP(&jobRole, "role", "r", "", "job role to interview for (required)")
	interviewCmd.Flags().StringVarP(&expLevel, "level", "l", "mid", "experience level: fresher, junior, mid, senior, lead")
	interviewCmd.Flags().IntVarP(&minutes, "minutes", "m", 30, "interview time budget in minutes")
	_ = interviewCmd.MarkFlagRequired("role")
}

func runInterview(ctx context.Context, eng *engine.Engine) error {
	budget := time.Duration(minutes) * time.Minute
	level := interview.ExperienceLevel(strings.ToLower(expLevel))

	session, q, err := eng.StartSession(ctx, jobRole, level, budget)
	if err != nil {
		return err
	}

	fmt.Printf("\nInterview started for %q (%s level, %s budget).\n", jobRole, level, budget)
	fmt.Println("Finish each answer with an empty line. /time /skip /end")

	reader := bufio.NewReader(os.Stdin)
	for {
		if ctx.Err() != nil {
			break
		}

		fmt.Printf("\n[%s | %s] Q%d: %s\n> ", strings.ToUpper(string(q.Round)), q.Difficulty, q.Index, q.Question)

		answer, quit := readAnswer(reader, eng, session.ID)
		if quit {
			break
		}

		res, err := eng.SubmitAnswer(ctx, session.ID, answer)
		if err != nil {
			var stateErr *engine.StateError
			if errors.As(err, &stateErr) {
				fmt.Printf("\nSession is %s.\n", stateErr.Status)
				break
			}
			return err
		}

		printEvaluation(res)
		if res.Status.Terminal() {
			break
		}
		if res.RoundFinished {
			fmt.Printf("\n--- Moving to the %s round ---\n", strings.ToUpper(string(res.Round)))
		}

		q, err = eng.NextQuestion(ctx, session.ID)
		if err != nil {
			var stateErr *engine.StateError
			if errors.As(err, &stateErr) {
				fmt.Printf("\nSession is %s.\n", stateErr.Status)
				break
			}
			return err
		}
	}

	report, err := eng.EndSession(session.ID)
	if err != nil {
		return err
	}
	printReport(report)
	return nil
}

// readAnswer collects lines until an empty line, handling slash commands.
// The second return is true when the candidate asked to end the session.
func readAnswer(reader *bufio.Reader, eng *engine.Engine, sessionID string) (string, bool) {
	var lines []string
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return strings.Join(lines, "\n"), true
		}
		line = strings.TrimRight(line, "\r\n")

		switch strings.TrimSpace(line) {
		case "/end":
			return "", true
		case "/skip":
			return "", false
		case "/time":
			if rem, err := eng.TimeRemaining(sessionID); err == nil {
				fmt.Printf("(time remaining: %s)\n> ", rem.Round(time.Second))
			}
			continue
		case "":
			if len(lines) > 0 {
				return strings.Join(lines, "\n"), false
			}
			fmt.Print("> ")
			continue
		}
		lines = append(lines, line)
	}
}

func printEvaluation(res *engine.SubmitResult) {
	v := res.Evaluation.Scores
	fmt.Printf("\nScore: %.1f/100 (%s)\n", v.Overall, res.Evaluation.Strength)
	fmt.Printf("  content %.0f | keywords %.0f | depth %.0f | communication %.0f | confidence %.0f\n",
		v.Content, v.Keyword, v.Depth, v.Communication, v.Confidence)
	if len(v.KeywordsMissed) > 0 {
		fmt.Printf("  missed: %s\n", strings.Join(v.KeywordsMissed, ", "))
	}
	fmt.Printf("  %s\n", res.Evaluation.Feedback)
}

func printReport(r *engine.Report) {
	fmt.Printf("\n================ INTERVIEW REPORT ================\n")
	fmt.Printf("Role: %s (%s)\n", r.Role, r.Level)
	fmt.Printf("Status: %s", r.Status)
	if r.TerminationReason != "" {
		fmt.Printf(" (%s)", r.TerminationReason)
	}
	fmt.Println()
	fmt.Printf("Overall: %.1f/100 -> %s\n", r.OverallScore, r.Recommendation)
	fmt.Printf("Duration: %s | Questions answered: %d/%d\n",
		r.Duration.Round(time.Second), r.QuestionsAnswered, r.QuestionsAsked)

	printRound := func(rr engine.RoundReport) {
		if rr.QuestionsAsked == 0 {
			return
		}
		verdict := "failed"
		if rr.Passed {
			verdict = "passed"
		}
		fmt.Printf("\n%s round: %.1f (%s, %d questions)\n",
			strings.ToUpper(string(rr.Round)), rr.Score, verdict, rr.QuestionsAsked)
	}
	printRound(r.Technical)
	printRound(r.HR)

	printList := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		fmt.Printf("\n%s:\n", title)
		for _, item := range items {
			fmt.Printf("  - %s\n", item)
		}
	}
	printList("Strengths", r.Strengths)
	printList("Areas to improve", r.Weaknesses)
	printList("Suggestions", r.Suggestions)
	fmt.Println("==================================================")
}
