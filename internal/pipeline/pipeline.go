// Package pipeline runs the end-to-end analysis for one submitted URL: fetch,
// structural extraction, AI generation and result persistence, reporting
// progress through the task store.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/cloneplan/internal/ai"
	"github.com/fyrsmithlabs/cloneplan/internal/analyzer"
	"github.com/fyrsmithlabs/cloneplan/internal/fetcher"
	"github.com/fyrsmithlabs/cloneplan/internal/metrics"
	"github.com/fyrsmithlabs/cloneplan/internal/plandoc"
	"github.com/fyrsmithlabs/cloneplan/internal/store"
)

// Error kinds recorded on failed tasks. Fetch failures carry the transport
// reason as a suffix, e.g. "fetch:timeout".
const (
	KindFetch    = "fetch"
	KindExtract  = "extract"
	KindGenerate = "generate"
	KindPersist  = "persist"
)

// StepNames is the fixed pipeline step list, created with every task.
var StepNames = []string{
	"Page structure analysis",
	"Content extraction",
	"Navigation analysis",
	"Design element extraction",
	"Plan document generation",
	"Mockup image generation",
	"Idea suggestion generation",
}

// Runner creates tasks and executes their pipelines in the background.
type Runner struct {
	store    *store.Store
	fetcher  *fetcher.Fetcher
	registry *ai.Registry
	metrics  *metrics.Metrics
	logger   *zap.Logger

	defaults ai.Selection
	wg       sync.WaitGroup
}

// Config holds the default backend selection applied when no persisted
// setting overrides it.
type Config struct {
	TextBackend  string
	ImageBackend string
	IdeasBackend string
}

// New creates a runner.
func New(st *store.Store, f *fetcher.Fetcher, registry *ai.Registry, m *metrics.Metrics, cfg Config, logger *zap.Logger) (*Runner, error) {
	if st == nil {
		return nil, errors.New("store is required")
	}
	if f == nil {
		return nil, errors.New("fetcher is required")
	}
	if registry == nil {
		return nil, errors.New("ai registry is required")
	}
	if m == nil {
		return nil, errors.New("metrics is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		store:    st,
		fetcher:  f,
		registry: registry,
		metrics:  m,
		logger:   logger,
		defaults: ai.Selection{
			Text:  cfg.TextBackend,
			Image: cfg.ImageBackend,
			Ideas: cfg.IdeasBackend,
		},
	}, nil
}

// Start validates the URL, creates the task and launches the pipeline in a
// background goroutine. The backend selection is resolved from settings here
// and stays fixed for the lifetime of the task.
func (r *Runner) Start(ctx context.Context, rawURL string) (string, error) {
	url, err := fetcher.NormalizeURL(rawURL)
	if err != nil {
		return "", err
	}

	sel := ai.Selection{
		Text:  r.store.GetSetting(ctx, store.SettingTextBackend, r.defaults.Text),
		Image: r.store.GetSetting(ctx, store.SettingImageBackend, r.defaults.Image),
		Ideas: r.store.GetSetting(ctx, store.SettingIdeasBackend, r.defaults.Ideas),
	}
	provider, err := r.registry.Bind(sel)
	if err != nil {
		return "", err
	}

	task, err := r.store.CreateTask(ctx, url, StepNames)
	if err != nil {
		return "", err
	}

	r.logger.Info("task created",
		zap.String("task_id", task.ID),
		zap.String("url", url),
		zap.String("text_backend", sel.Text),
		zap.String("image_backend", sel.Image),
		zap.String("ideas_backend", sel.Ideas))

	r.metrics.TaskStarted()
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		// Detached from the request context; the fetch timeout is the only
		// externally imposed bound.
		r.run(context.Background(), task.ID, url, provider)
	}()

	return task.ID, nil
}

// Wait blocks until all running pipelines have finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) run(ctx context.Context, taskID, url string, provider *ai.Provider) {
	logger := r.logger.With(zap.String("task_id", taskID), zap.String("url", url))

	if err := r.store.MarkRunning(ctx, taskID, "analysis started"); err != nil {
		logger.Error("failed to mark task running", zap.Error(err))
		r.metrics.TaskFailed(KindPersist)
		return
	}

	// Step 0: fetch the page and extract its full structure.
	var analysis *analyzer.Analysis
	err := r.step(ctx, taskID, 0, func() (string, error) {
		content, err := r.fetcher.Fetch(ctx, url)
		if err != nil {
			return "", err
		}
		r.metrics.ObserveFetch(len(content))
		analysis, err = analyzer.Analyze(content, fetcher.BaseURL(url))
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d sections, %d-column layout", analysis.Layout.ContentSections, analysis.Layout.Columns), nil
	})
	if err != nil {
		r.fail(ctx, taskID, 0, classifyKind(err), err, logger)
		return
	}

	// Steps 1-3 report on the extraction already performed; each validates
	// its slice of the analysis.
	if err := r.step(ctx, taskID, 1, func() (string, error) {
		c := analysis.Content
		return fmt.Sprintf("%d paragraphs, %d images, %d links", c.Paragraphs, c.Images, c.Links), nil
	}); err != nil {
		r.fail(ctx, taskID, 1, kindFor(err, KindExtract), err, logger)
		return
	}

	if err := r.step(ctx, taskID, 2, func() (string, error) {
		return fmt.Sprintf("%d menu items", len(analysis.Menu)), nil
	}); err != nil {
		r.fail(ctx, taskID, 2, kindFor(err, KindExtract), err, logger)
		return
	}

	if err := r.step(ctx, taskID, 3, func() (string, error) {
		return fmt.Sprintf("%d colors, %d component types", len(analysis.Colors), len(analysis.Components)), nil
	}); err != nil {
		r.fail(ctx, taskID, 3, kindFor(err, KindExtract), err, logger)
		return
	}

	// Step 4: AI design insights feeding the plan document.
	var insights string
	if err := r.step(ctx, taskID, 4, func() (string, error) {
		out, err := provider.Text.GenerateText(ctx, taskID, insightsPrompt(url, analysis))
		if err != nil {
			return "", err
		}
		insights = out
		return "design insights generated", nil
	}); err != nil {
		r.fail(ctx, taskID, 4, kindFor(err, KindGenerate), err, logger)
		return
	}

	// Step 5: mockup image for the main page.
	var mockups map[string]string
	if err := r.step(ctx, taskID, 5, func() (string, error) {
		ref, err := provider.Image.GenerateImage(ctx, taskID, mockupPrompt(analysis))
		if err != nil {
			return "", err
		}
		mockups = map[string]string{"main page": ref}
		return "1 mockup generated", nil
	}); err != nil {
		r.fail(ctx, taskID, 5, kindFor(err, KindGenerate), err, logger)
		return
	}

	// Step 6: business idea suggestions.
	var ideas []string
	if err := r.step(ctx, taskID, 6, func() (string, error) {
		out, err := provider.Ideas.GenerateText(ctx, taskID, ideasPrompt(url, analysis))
		if err != nil {
			return "", err
		}
		ideas = splitIdeas(out)
		return fmt.Sprintf("%d ideas generated", len(ideas)), nil
	}); err != nil {
		r.fail(ctx, taskID, 6, kindFor(err, KindGenerate), err, logger)
		return
	}

	result, err := buildResult(taskID, url, analysis, insights, ideas, mockups)
	if err != nil {
		r.fail(ctx, taskID, -1, KindPersist, err, logger)
		return
	}
	resultID, err := r.store.SaveResult(ctx, result)
	if err != nil {
		r.fail(ctx, taskID, -1, KindPersist, err, logger)
		return
	}
	if err := r.store.CompleteTask(ctx, taskID, resultID); err != nil {
		logger.Error("failed to complete task", zap.Error(err))
		r.metrics.TaskFailed(KindPersist)
		return
	}

	r.metrics.TaskCompleted()
	logger.Info("task completed", zap.String("result_id", resultID))
}

// errProgress marks failures of the step bookkeeping itself, so they are
// recorded as persistence errors rather than blamed on the step's work.
var errProgress = errors.New("failed to record step progress")

// step runs one pipeline step with running/completed bookkeeping. The
// returned message is recorded on the completed step row.
func (r *Runner) step(ctx context.Context, taskID string, index int, fn func() (string, error)) error {
	if err := r.store.UpdateStep(ctx, taskID, index, store.StatusRunning, ""); err != nil {
		return fmt.Errorf("%w: %w", errProgress, err)
	}
	start := time.Now()
	message, err := fn()
	r.metrics.ObserveStep(StepNames[index], time.Since(start))
	if err != nil {
		return err
	}
	if err := r.store.UpdateStep(ctx, taskID, index, store.StatusCompleted, message); err != nil {
		return fmt.Errorf("%w: %w", errProgress, err)
	}
	return nil
}

// fail records the failure on the step (when one is identified) and the task.
// Steps after the failed one stay pending.
func (r *Runner) fail(ctx context.Context, taskID string, stepIndex int, kind string, cause error, logger *zap.Logger) {
	if stepIndex >= 0 {
		if err := r.store.UpdateStep(ctx, taskID, stepIndex, store.StatusError, cause.Error()); err != nil {
			logger.Error("failed to record step failure", zap.Error(err))
		}
	}
	if err := r.store.FailTask(ctx, taskID, kind, cause.Error()); err != nil {
		logger.Error("failed to record task failure", zap.Error(err))
	}
	r.metrics.TaskFailed(kind)
	logger.Warn("task failed",
		zap.String("kind", kind),
		zap.Error(cause))
}

// classifyKind tags the first step's error: fetch failures keep their
// transport reason as detail, anything else is an extraction failure.
func classifyKind(err error) string {
	if errors.Is(err, errProgress) {
		return KindPersist
	}
	var fetchErr *fetcher.Error
	if errors.As(err, &fetchErr) {
		return KindFetch + ":" + string(fetchErr.Reason)
	}
	return KindExtract
}

// kindFor attributes an error to the step's own work unless the step
// bookkeeping failed, which is a persistence problem.
func kindFor(err error, stepKind string) string {
	if errors.Is(err, errProgress) {
		return KindPersist
	}
	return stepKind
}

func buildResult(taskID, url string, a *analyzer.Analysis, insights string, ideas []string, mockups map[string]string) (*store.Result, error) {
	design, err := json.Marshal(map[string]any{
		"layout": a.Layout,
		"colors": a.Colors,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode design analysis: %w", err)
	}
	components, err := json.Marshal(a.Components)
	if err != nil {
		return nil, fmt.Errorf("failed to encode components: %w", err)
	}
	pages, err := json.Marshal(a.Pages)
	if err != nil {
		return nil, fmt.Errorf("failed to encode pages: %w", err)
	}
	structure, err := json.Marshal(map[string]any{
		"menu":              a.Menu,
		"content_structure": a.Content,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode structure: %w", err)
	}

	return &store.Result{
		TaskID:      taskID,
		URL:         url,
		Title:       a.Metadata.Title,
		Description: a.Metadata.Description,
		PlanText: plandoc.Generate(plandoc.Input{
			URL:      url,
			Analysis: a,
			Insights: insights,
			Ideas:    ideas,
			Mockups:  mockups,
		}),
		DesignJSON:     string(design),
		ComponentsJSON: string(components),
		PagesJSON:      string(pages),
		StructureJSON:  string(structure),
	}, nil
}

func insightsPrompt(url string, a *analyzer.Analysis) string {
	var sb strings.Builder
	sb.WriteString("Summarize the design approach of the following website for a clone planning document.\n")
	fmt.Fprintf(&sb, "URL: %s\nTitle: %s\n", url, a.Metadata.Title)
	if a.Metadata.Description != "" {
		fmt.Fprintf(&sb, "Description: %s\n", a.Metadata.Description)
	}
	fmt.Fprintf(&sb, "Layout: header=%t footer=%t sidebar=%t columns=%d width=%s\n",
		a.Layout.Header, a.Layout.Footer, a.Layout.Sidebar, a.Layout.Columns, a.Layout.Width)
	if len(a.Colors) > 0 {
		hexes := make([]string, 0, len(a.Colors))
		for _, c := range a.Colors {
			hexes = append(hexes, c.Hex)
		}
		fmt.Fprintf(&sb, "Colors: %s\n", strings.Join(hexes, ", "))
	}
	for _, c := range a.Components {
		fmt.Fprintf(&sb, "Component: %s x%d\n", c.Type, c.Count)
	}
	sb.WriteString("Write two short paragraphs: overall visual style, and what to keep or simplify in a clone.")
	return sb.String()
}

func mockupPrompt(a *analyzer.Analysis) string {
	title := a.Metadata.Title
	if title == "" {
		title = "a website"
	}
	style := "fixed-width"
	if a.Layout.Width == "responsive" {
		style = "responsive"
	}
	return fmt.Sprintf("Clean wireframe mockup of the main page of %s, %s layout, %d columns, modern web design, no text artifacts",
		title, style, a.Layout.Columns)
}

func ideasPrompt(url string, a *analyzer.Analysis) string {
	return fmt.Sprintf(
		"Suggest three business ideas derived from a website like %s (%s). One business idea per line, no numbering.",
		a.Metadata.Title, url)
}

// splitIdeas turns the generated idea text into a list, tolerating bullets
// and numbering.
func splitIdeas(text string) []string {
	var ideas []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*0123456789. ")
		if line != "" {
			ideas = append(ideas, line)
		}
	}
	return ideas
}
