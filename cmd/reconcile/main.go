// Command reconcile runs the UPI reconciliation pipeline from the shell:
// one-shot runs over a statement plus receipt texts, rule training from
// reviewer corrections, and a scheduled watch mode over drop directories.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/rganapathy/upi-reconciler/internal/domain/categorization"
	"github.com/rganapathy/upi-reconciler/internal/domain/export"
	"github.com/rganapathy/upi-reconciler/internal/domain/matching"
	"github.com/rganapathy/upi-reconciler/internal/domain/reconcile"
	"github.com/rganapathy/upi-reconciler/internal/domain/search"
	"github.com/rganapathy/upi-reconciler/internal/domain/statement"
	"github.com/rganapathy/upi-reconciler/internal/models"
	"github.com/rganapathy/upi-reconciler/pkg/config"
	"github.com/rganapathy/upi-reconciler/pkg/schedule"
)

// appContext holds shared state bound into every command's Run method.
type appContext struct {
	cfg    *config.Config
	logger *slog.Logger
}

var cli struct {
	Run   runCmd   `cmd:"" help:"Reconcile one statement against receipt texts."`
	Train trainCmd `cmd:"" help:"Teach the categorizer from a reviewer correction."`
	Watch watchCmd `cmd:"" help:"Periodically sweep drop directories for new files."`
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(cfg.Logging.Level),
	}))

	ctx := kong.Parse(&cli)
	err = ctx.Run(&appContext{cfg: cfg, logger: logger})
	ctx.FatalIfErrorf(err)
}

func logLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type runCmd struct {
	Statement string `arg:"" required:"" help:"Bank statement file (.csv or .xlsx)."`
	Receipts  string `help:"Directory of OCR receipt text files (*.txt)."`
	Skip      int    `default:"0" help:"Preamble lines before the statement header."`
	Out       string `help:"Export file path; defaults to <statement>.reconciled.<format>."`
	Format    string `help:"Export format, csv or xlsx. Defaults to EXPORT_FORMAT."`
	Approve   bool   `help:"Auto-approve every match that found a receipt."`
	Query     string `help:"Optional search query to run over the indexed records."`
}

func (c *runCmd) Run(app *appContext) error {
	svc, err := newService(app)
	if err != nil {
		return err
	}

	table, err := loadStatement(c.Statement, c.Skip)
	if err != nil {
		return err
	}

	ocr, err := loadReceiptTexts(c.Receipts)
	if err != nil {
		return err
	}

	result, err := svc.Run(table, ocr)
	if err != nil {
		return err
	}

	if c.Approve {
		for i, m := range result.Matches {
			if m.Receipt == nil {
				continue
			}
			approved, err := svc.Approve(m, "", categorization.TrainingOptions{})
			if err != nil {
				return err
			}
			result.Matches[i] = approved
		}
		if err := categorization.SaveRules(app.cfg.Rules.Path, svc.Rules()); err != nil {
			return err
		}
	}

	format := c.Format
	if format == "" {
		format = app.cfg.Export.Format
	}
	out := c.Out
	if out == "" {
		out = c.Statement + ".reconciled." + format
	}
	if err := writeExport(out, format, result.Matches); err != nil {
		return err
	}

	if c.Query != "" {
		if err := runQuery(app, c.Query, result); err != nil {
			return err
		}
	}

	app.logger.Info("run complete",
		slog.String("export", out),
		slog.Int("matches", len(result.Matches)),
	)
	return nil
}

type trainCmd struct {
	Description string `required:"" help:"Bank narration of the corrected transaction."`
	Merchant    string `help:"Merchant name, when known from the receipt."`
	Category    string `required:"" help:"Approved category."`
	Previous    string `help:"Previously auto-assigned category, if any."`
	Confidence  string `default:"medium" enum:"low,medium,high" help:"Reviewer confidence."`
	Recurring   bool   `help:"Mark the payment as recurring."`
	Bulk        bool   `help:"Part of a bulk-training session."`
	Similar     bool   `help:"Apply to similar records."`
	Notes       string `help:"Free-text notes, mined for extra keywords."`
}

func (c *trainCmd) Run(app *appContext) error {
	rules, err := loadOrDefaultRules(app.cfg.Rules.Path)
	if err != nil {
		return err
	}

	tx := models.BankTransaction{
		Description: c.Description,
		Category:    models.Category(c.Previous),
	}
	var rcpt *models.Receipt
	if c.Merchant != "" {
		rcpt = &models.Receipt{Merchant: c.Merchant}
	}

	updated := categorization.Learn(tx, rcpt, models.Category(c.Category), rules, categorization.TrainingOptions{
		Bulk:           c.Bulk,
		Recurring:      c.Recurring,
		ApplyToSimilar: c.Similar,
		Confidence:     categorization.ConfidenceLevel(c.Confidence),
		Notes:          c.Notes,
	})

	if err := categorization.SaveRules(app.cfg.Rules.Path, updated); err != nil {
		return err
	}

	app.logger.Info("rules updated",
		slog.String("category", c.Category),
		slog.Int("rules", len(updated)),
	)
	return nil
}

type watchCmd struct {
	Schedule string `help:"Cron expression for sweeps. Defaults to WATCH_SCHEDULE."`
}

func (c *watchCmd) Run(app *appContext) error {
	spec := c.Schedule
	if spec == "" {
		spec = app.cfg.Watch.Schedule
	}

	processed := make(map[string]bool)

	sched := schedule.NewScheduler(app.logger)
	err := sched.Add(spec, func(_ context.Context) {
		if err := c.sweep(app, processed); err != nil {
			app.logger.Error("sweep failed", slog.Any("error", err))
		}
	})
	if err != nil {
		return fmt.Errorf("registering sweep: %w", err)
	}
	sched.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	<-sched.Stop().Done()
	return nil
}

// sweep reconciles every statement file in the drop directory that has not
// been processed yet, against the current contents of the receipt directory.
func (c *watchCmd) sweep(app *appContext, processed map[string]bool) error {
	entries, err := os.ReadDir(app.cfg.Watch.StatementDir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || processed[entry.Name()] {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".csv" && ext != ".xlsx" {
			continue
		}

		path := filepath.Join(app.cfg.Watch.StatementDir, entry.Name())
		app.logger.Info("sweeping statement", slog.String("file", path))

		run := runCmd{
			Statement: path,
			Receipts:  app.cfg.Watch.ReceiptDir,
			Approve:   true,
			Out:       filepath.Join(app.cfg.Export.Dir, entry.Name()+".reconciled."+app.cfg.Export.Format),
		}
		if err := run.Run(app); err != nil {
			app.logger.Warn("statement sweep failed",
				slog.String("file", path),
				slog.Any("error", err),
			)
			continue
		}
		processed[entry.Name()] = true
	}
	return nil
}

func newService(app *appContext) (*reconcile.Service, error) {
	rules, err := loadOrDefaultRules(app.cfg.Rules.Path)
	if err != nil {
		return nil, err
	}
	weights := matching.Weights{
		ExactAmount: app.cfg.Matching.ExactAmountWeight,
		UTR:         app.cfg.Matching.UTRWeight,
		SameDay:     app.cfg.Matching.SameDayWeight,
		AdjacentDay: app.cfg.Matching.AdjacentDayWeight,
		Merchant:    app.cfg.Matching.MerchantWeight,
	}
	return reconcile.NewService(rules, weights, app.cfg.Matching.MinScore, app.logger), nil
}

func loadOrDefaultRules(path string) ([]models.CategoryRule, error) {
	rules, err := categorization.LoadRules(path)
	if err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		rules = categorization.DefaultRules()
	}
	return rules, nil
}

func loadStatement(path string, skip int) (statement.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return statement.Table{}, err
	}
	defer f.Close()

	opts := statement.LoadOptions{SkipLines: skip}
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return statement.LoadExcel(f, opts)
	}
	return statement.LoadCSV(f, opts)
}

// loadReceiptTexts reads every *.txt file in dir as one OCR capture. The
// files are trusted OCR output, so confidence defaults to high.
func loadReceiptTexts(dir string) ([]reconcile.OCRInput, error) {
	if dir == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var inputs []reconcile.OCRInput
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".txt") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, reconcile.OCRInput{Text: string(data), Confidence: 0.9})
	}
	return inputs, nil
}

func writeExport(path, format string, matches []models.TransactionMatch) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var writeErr error
	if strings.EqualFold(format, "xlsx") {
		writeErr = export.WriteXLSX(f, matches)
	} else {
		writeErr = export.WriteCSV(f, matches)
	}
	return writeErr
}

func runQuery(app *appContext, query string, result *reconcile.Result) error {
	idx, err := search.NewIndex(app.cfg.Search.IndexPath)
	if err != nil {
		return err
	}
	defer idx.Close()

	if err := idx.IndexRecords(result.Transactions, result.Receipts); err != nil {
		return err
	}

	hits, err := idx.Search(query, 25)
	if err != nil {
		return err
	}
	for _, hit := range hits {
		fmt.Fprintf(os.Stdout, "%-12s %s (%.2f)\n", hit.Kind, hit.ID, hit.Score)
	}
	return nil
}
