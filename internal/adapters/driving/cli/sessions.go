package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/retracehq/retrace/internal/core/domain"
	"github.com/retracehq/retrace/internal/core/ports/driving"
)

var (
	sessionsAgent   string
	sessionsProject string
	sessionsLimit   int
	sessionsJSON    bool

	readQuery      string
	readContext    int
	readAllMatches bool
	readMaxMatches int
	readOffset     int
	readLimit      int
	readJSON       bool
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List and read agent sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent sessions, newest first",
	RunE:  runSessionsList,
}

var sessionsReadCmd = &cobra.Command{
	Use:   "read [agent] [session-id]",
	Short: "Read one session's messages",
	Long: `Reads a session transcript. With --query the output narrows to the
first matching message plus surrounding context, or with --all-matches
to every match as merged context windows.`,
	Args: cobra.ExactArgs(2),
	RunE: runSessionsRead,
}

func init() {
	sessionsListCmd.Flags().StringVarP(&sessionsAgent, "agent", "a", driving.AllAgents, "agent name, or 'all'")
	sessionsListCmd.Flags().StringVarP(&sessionsProject, "project", "p", "", "project path substring filter")
	sessionsListCmd.Flags().IntVarP(&sessionsLimit, "limit", "n", 20, "maximum number of sessions")
	sessionsListCmd.Flags().BoolVar(&sessionsJSON, "json", false, "output as JSON")

	sessionsReadCmd.Flags().StringVarP(&readQuery, "query", "q", "", "locate messages matching this query")
	sessionsReadCmd.Flags().IntVarP(&readContext, "context", "c", -1, "messages of context around each match")
	sessionsReadCmd.Flags().BoolVar(&readAllMatches, "all-matches", false, "return every match as context windows")
	sessionsReadCmd.Flags().IntVar(&readMaxMatches, "max-matches", 0, "cap on matches with --all-matches")
	sessionsReadCmd.Flags().IntVar(&readOffset, "offset", 0, "skip this many messages")
	sessionsReadCmd.Flags().IntVarP(&readLimit, "limit", "n", 0, "maximum messages to print")
	sessionsReadCmd.Flags().BoolVar(&readJSON, "json", false, "output as JSON")

	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsReadCmd)
	rootCmd.AddCommand(sessionsCmd)
}

func runSessionsList(cmd *cobra.Command, _ []string) error {
	filter := domain.SessionFilter{Project: sessionsProject, Limit: sessionsLimit}
	sessions, err := sessionService.ListSessions(cmd.Context(), sessionsAgent, filter)
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}

	if sessionsJSON {
		return outputJSON(cmd, sessions)
	}

	if len(sessions) == 0 {
		cmd.Println("No sessions found.")
		return nil
	}
	for _, sess := range sessions {
		when := ""
		if sess.Timestamp != 0 {
			when = time.UnixMilli(sess.Timestamp).Format("2006-01-02 15:04")
		}
		title := sess.Display
		if title == "" {
			title = sess.ID
		}
		cmd.Printf("%s %s\n", styleTitle.Render(title),
			styleMeta.Render(fmt.Sprintf("(%d messages)", sess.MessageCount)))
		meta := fmt.Sprintf("%s · %s", sess.Agent, sess.ID)
		if sess.Project != "" {
			meta += " · " + sess.Project
		}
		if when != "" {
			meta += " · " + when
		}
		cmd.Printf("    %s\n", styleMeta.Render(meta))
	}
	return nil
}

func runSessionsRead(cmd *cobra.Command, args []string) error {
	opts := domain.ReadOptions{
		Query:         readQuery,
		ContextWindow: readContext,
		AllMatches:    readAllMatches,
		MaxMatches:    readMaxMatches,
		Offset:        readOffset,
		Limit:         readLimit,
	}

	read, err := sessionService.Read(cmd.Context(), args[0], args[1], opts)
	if err != nil {
		return fmt.Errorf("reading session: %w", err)
	}

	if readJSON {
		return outputJSON(cmd, read)
	}

	header := fmt.Sprintf("%s/%s · %d messages", read.Agent, read.ID, read.TotalMessages)
	if read.Project != "" {
		header += " · " + read.Project
	}
	cmd.Println(styleTitle.Render(header))

	if len(read.Windows) > 0 {
		cmd.Printf("%s\n\n", styleMeta.Render(fmt.Sprintf("%d matches", read.MatchCount)))
		for _, w := range read.Windows {
			cmd.Println(styleMeta.Render(fmt.Sprintf("--- messages %d-%d ---", w.Start, w.End)))
			printMessages(cmd, w.Messages, w.Start, w.Matched)
		}
		return nil
	}

	cmd.Println()
	var matched []int
	if read.MatchIndex >= 0 {
		matched = []int{read.FirstIndex + read.MatchIndex}
	}
	printMessages(cmd, read.Messages, read.FirstIndex, matched)
	return nil
}

func printMessages(cmd *cobra.Command, msgs []domain.Message, first int, matched []int) {
	matchSet := make(map[int]bool, len(matched))
	for _, m := range matched {
		matchSet[m] = true
	}
	for i, msg := range msgs {
		idx := first + i
		label := fmt.Sprintf("[%d] %s", idx, msg.Role)
		if matchSet[idx] {
			label = styleMatch.Render(label + " *")
		} else {
			label = styleMeta.Render(label)
		}
		cmd.Printf("%s\n%s\n\n", label, msg.Text)
	}
}
