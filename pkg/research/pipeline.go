package research

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// maxResearchWorkers caps the research fan-out regardless of how many
// sub-topics the splitter returns.
const maxResearchWorkers = 8

// phaseUnits is the progress denominator: split, research, synthesize.
const phaseUnits = 3

// Pipeline sequences split -> concurrent research -> synthesis. A run
// always produces a report: individual research failures are embedded
// inline as findings, never propagated. Split and synthesis errors are
// fatal. Once started, a run cannot be aborted between phases.
type Pipeline struct {
	Splitter    *TopicSplitter
	Researcher  *Researcher
	Synthesizer *Synthesizer
	Logger      *slog.Logger

	// MaxWorkers overrides the research pool size. Values outside
	// (0, maxResearchWorkers] fall back to the cap.
	MaxWorkers int
}

func NewPipeline(splitter *TopicSplitter, researcher *Researcher, synthesizer *Synthesizer) *Pipeline {
	return &Pipeline{
		Splitter:    splitter,
		Researcher:  researcher,
		Synthesizer: synthesizer,
		Logger:      slog.Default(),
	}
}

type stepResult struct {
	subtopic string
	finding  string
	sources  []CuratedSource
}

// Run executes one research pipeline for a topic. onProgress may be nil;
// when set it is invoked synchronously from the orchestrating goroutine
// and must not block indefinitely. The progress scale is phase units out
// of 3, with research completions reported as 1 + completed/total in
// completion order.
func (p *Pipeline) Run(ctx context.Context, topic string, onProgress ProgressFunc) (*Result, error) {
	if strings.TrimSpace(topic) == "" {
		return nil, fmt.Errorf("topic must not be empty")
	}

	emit := func(message string, completed, total float64) {
		if onProgress != nil {
			onProgress(message, completed, total)
		}
	}

	emit("Splitting topic...", 0.1, phaseUnits)
	subtopics, err := p.Splitter.Split(ctx, topic)
	if err != nil {
		return nil, err
	}
	p.Logger.Info("Topic split", "topic", topic, "subtopics", subtopics)

	findings := make(map[string]string, len(subtopics))
	var sources []CuratedSource

	if n := len(subtopics); n > 0 {
		workers := p.MaxWorkers
		if workers <= 0 || workers > maxResearchWorkers {
			workers = maxResearchWorkers
		}
		if workers > n {
			workers = n
		}

		sem := make(chan struct{}, workers)
		results := make(chan stepResult)
		var wg sync.WaitGroup

		for _, sub := range subtopics {
			wg.Add(1)
			go func(subtopic string) {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()

				finding, srcs, err := p.Researcher.Research(ctx, subtopic)
				if err != nil {
					p.Logger.Error("Research step failed", "subtopic", subtopic, "error", err)
					results <- stepResult{subtopic: subtopic, finding: fmt.Sprintf("Error: %v", err)}
					return
				}
				results <- stepResult{subtopic: subtopic, finding: finding, sources: srcs}
			}(sub)
		}

		go func() {
			wg.Wait()
			close(results)
		}()

		// Single consumer: the findings map is only ever written here,
		// after each worker hands its result over the channel. Duplicate
		// sub-topics overwrite the same key, last completion wins.
		completed := 0
		for res := range results {
			completed++
			findings[res.subtopic] = res.finding
			sources = append(sources, res.sources...)
			emit(fmt.Sprintf("Researched: %s", res.subtopic), 1+float64(completed)/float64(n), phaseUnits)
		}
	}

	emit("Synthesizing findings...", 2, phaseUnits)
	report, err := p.Synthesizer.Synthesize(ctx, topic, subtopics, findings)
	if err != nil {
		return nil, err
	}
	p.Logger.Info("Report synthesized", "topic", topic, "findings", len(findings), "length", len(report))

	emit("Research complete", phaseUnits, phaseUnits)
	return &Result{
		Topic:     topic,
		Subtopics: subtopics,
		Findings:  findings,
		Report:    report,
		Sources:   sources,
	}, nil
}
