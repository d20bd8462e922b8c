package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Sai-Yarlagadda/grading-14763/internal/dto"
	"github.com/Sai-Yarlagadda/grading-14763/internal/models"
	"github.com/Sai-Yarlagadda/grading-14763/internal/service"
	"github.com/Sai-Yarlagadda/grading-14763/pkg/config"
	"github.com/Sai-Yarlagadda/grading-14763/pkg/export"
)

var errHelp = errors.New("help provided")

type lastCommitFinder interface {
	LastCommitTime(ctx context.Context, url string) (time.Time, error)
}

type commandLine struct {
	cfg       *config.Config
	logger    *zap.Logger
	inspector lastCommitFinder
	out       io.Writer
}

// questionFlags collects repeated -q values. An empty value is a question without sub-parts.
type questionFlags []string

func (q *questionFlags) String() string { return strings.Join(*q, " | ") }

func (q *questionFlags) Set(v string) error {
	*q = append(*q, v)
	return nil
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  report -dir DIR|-zip FILE -due-date YYYY-MM-DD -due-time HH:MM -q \"1a,1b\" -q \"\" [-roster FILE] [-out output.xlsx] - build the submissions report")
	fmt.Fprintln(cli.out, "  check -url URL -due-date YYYY-MM-DD -due-time HH:MM - last push time and late penalty for one repository")
	fmt.Fprintln(cli.out, "  assign -q \"1a,1b\" -q \"\" [-graders A,B] - preview the TA assignment")
	fmt.Fprintln(cli.out, "  token -user ID - issue an API access token")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	switch args[1] {
	case "report":
		return cli.report(args[2:])
	case "check":
		return cli.check(args[2:])
	case "assign":
		return cli.assign(args[2:])
	case "token":
		return cli.token(args[2:])
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

func (cli *commandLine) report(args []string) error {
	fs := cli.newFlagSet("report")
	dir := fs.String("dir", "", "Directory holding the submission files.")
	zipPath := fs.String("zip", "", "Zip archive of the submission files.")
	rosterPath := fs.String("roster", cli.cfg.Grading.RosterPath, "Roster file (.csv with a Name column, .xlsx, or one name per line).")
	dueDate := fs.String("due-date", "", "Due date, YYYY-MM-DD.")
	dueTime := fs.String("due-time", "", "Due time, HH:MM.")
	graders := fs.String("graders", strings.Join(cli.cfg.Grading.Graders, ","), "Comma separated TA roster.")
	docType := fs.String("doc-type", cli.cfg.Grading.DocType, "Submission document type: auto, html or pdf.")
	out := fs.String("out", "output.xlsx", "Report file. The extension picks the format (xlsx, csv, pdf).")
	var questions questionFlags
	fs.Var(&questions, "q", "Comma separated sub-question labels for one question. Repeat per question.")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if (*dir == "") == (*zipPath == "") || *dueDate == "" || *dueTime == "" || len(questions) == 0 {
		fs.Usage()
		return errHelp
	}

	format := models.ReportFormat(strings.TrimPrefix(strings.ToLower(filepath.Ext(*out)), "."))
	if !export.ValidFormat(string(format)) {
		return fmt.Errorf("unsupported output format %q", format)
	}
	if !service.ValidDocType(*docType) {
		return fmt.Errorf("unsupported doc type %q", *docType)
	}

	due, err := service.ParseDueDateTime(*dueDate, *dueTime, cli.cfg.Grading.Location)
	if err != nil {
		return err
	}
	questionSet, err := service.ParseQuestionSet(questions)
	if err != nil {
		return err
	}
	assignment, err := service.AssignGraders(questionSet, splitList(*graders))
	if err != nil {
		return err
	}
	roster, err := service.LoadRoster(*rosterPath)
	if err != nil {
		return err
	}

	root := *dir
	if *zipPath != "" {
		archives := service.NewArchiveService(nil, cli.logger, service.ArchiveServiceConfig{MaxFileSize: cli.cfg.Archives.MaxFileSizeBytes})
		ws, err := archives.ExtractFile(*zipPath)
		if err != nil {
			return err
		}
		defer func() {
			if err := ws.Release(); err != nil {
				cli.logger.Sugar().Warnw("failed to release submissions workspace", "error", err)
			}
		}()
		root = ws.Dir
	}

	locator := service.NewSubmissionLocator(cli.inspector, cli.cfg.Grading.Location, nil, cli.logger)
	assembler := service.NewReportAssembler(service.NewURLExtractor(cli.logger), locator, nil, cli.logger, cli.cfg.Grading.Delimiter)
	report, err := assembler.Assemble(context.Background(), service.AssembleInput{
		Dir:        root,
		Due:        due,
		Roster:     roster,
		Assignment: assignment,
		DocType:    *docType,
	})
	if err != nil {
		return err
	}

	payload, _, err := service.RenderReport(export.Renderers(), report, format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(*out, payload, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	fmt.Fprintf(cli.out, "wrote %d students to %s\n", len(report.Rows), *out)
	for _, id := range report.Unmatched {
		fmt.Fprintf(cli.out, "unmatched submission: %s\n", id)
	}
	return nil
}

func (cli *commandLine) check(args []string) error {
	fs := cli.newFlagSet("check")
	url := fs.String("url", "", "Repository URL.")
	dueDate := fs.String("due-date", "", "Due date, YYYY-MM-DD.")
	dueTime := fs.String("due-time", "", "Due time, HH:MM.")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *url == "" || *dueDate == "" || *dueTime == "" {
		fs.Usage()
		return errHelp
	}

	locator := service.NewSubmissionLocator(cli.inspector, cli.cfg.Grading.Location, nil, cli.logger)
	grading := service.NewGradingService(locator, nil, nil, cli.logger)
	resp, err := grading.CheckPenalty(context.Background(), dto.PenaltyCheckRequest{URL: *url, DueDate: *dueDate, DueTime: *dueTime})
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Last Push Time: %s\n", resp.LastPushTime)
	fmt.Fprintf(cli.out, "Points Deducted: %s\n", resp.PointsDeducted)
	return nil
}

func (cli *commandLine) assign(args []string) error {
	fs := cli.newFlagSet("assign")
	graders := fs.String("graders", strings.Join(cli.cfg.Grading.Graders, ","), "Comma separated TA roster.")
	var questions questionFlags
	fs.Var(&questions, "q", "Comma separated sub-question labels for one question. Repeat per question.")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if len(questions) == 0 {
		fs.Usage()
		return errHelp
	}

	grading := service.NewGradingService(nil, nil, nil, cli.logger)
	resp, err := grading.Assign(dto.AssignmentRequest{Questions: questions, Graders: splitList(*graders)})
	if err != nil {
		return err
	}
	for _, header := range resp.Headers {
		fmt.Fprintln(cli.out, header)
	}
	return nil
}

func (cli *commandLine) token(args []string) error {
	fs := cli.newFlagSet("token")
	user := fs.String("user", "", "Identifier embedded in the token, usually the TA's name.")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *user == "" {
		fs.Usage()
		return errHelp
	}

	auth := service.NewAuthService(cli.logger, service.AuthConfig{
		AccessTokenSecret: cli.cfg.JWT.Secret,
		AccessTokenExpiry: cli.cfg.JWT.Expiration,
	})
	resp, err := auth.IssueToken(*user)
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.out, resp.AccessToken)
	fmt.Fprintf(cli.out, "expires %s\n", resp.ExpiresAt.Format(time.RFC3339))
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}
