package sink

import (
	"errors"
	"fmt"
	"path/filepath"

	"tgarchive/pkg/config"
	"tgarchive/pkg/logger"
	"tgarchive/pkg/models"
)

// Sink is a streaming output writer. Records are written one at a time and
// never buffered beyond the current one; Finalize closes the file with the
// format's structural terminators and is safe to call exactly once, at any
// point in the stream.
type Sink interface {
	Write(msg *models.Message) error
	Finalize() error
	Path() string
}

// Set fans one record out to every sink enabled by the format selector.
type Set struct {
	sinks  []Sink
	logger logger.Logger
}

// Open creates the sinks selected by format under dir with the job's base
// name. A sink that fails to open is logged and skipped; the others are kept.
// Open fails only when no sink could be created at all.
func Open(dir, baseName string, format config.SaveFormat, log logger.Logger) (*Set, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	type opener struct {
		enabled bool
		open    func(path string) (Sink, error)
		ext     string
	}

	openers := []opener{
		{format.IncludesCSV(), func(p string) (Sink, error) { return NewCSVWriter(p) }, "csv"},
		{format.IncludesJSON(), func(p string) (Sink, error) { return NewJSONWriter(p) }, "json"},
		{format.IncludesHTML(), func(p string) (Sink, error) { return NewHTMLWriter(p) }, "html"},
	}

	set := &Set{logger: log}
	var openErrs []error
	for _, o := range openers {
		if !o.enabled {
			continue
		}
		path := filepath.Join(dir, baseName+"."+o.ext)
		s, err := o.open(path)
		if err != nil {
			log.WithError(err).WithField("path", path).Error("Failed to open output file, continuing without it")
			openErrs = append(openErrs, err)
			continue
		}
		log.WithField("path", path).Info("Output file created")
		set.sinks = append(set.sinks, s)
	}

	if len(set.sinks) == 0 {
		return nil, fmt.Errorf("no output sinks could be opened: %w", errors.Join(openErrs...))
	}

	return set, nil
}

// Write sends the record to every open sink. A write failure in one sink is
// logged and does not stop the others.
func (s *Set) Write(msg *models.Message) error {
	var errs []error
	for _, sink := range s.sinks {
		if err := sink.Write(msg); err != nil {
			s.logger.WithError(err).WithField("path", sink.Path()).Error("Failed to write record")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Finalize closes every sink with its proper terminators.
func (s *Set) Finalize() error {
	var errs []error
	for _, sink := range s.sinks {
		if err := sink.Finalize(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Paths returns the output file paths of the open sinks.
func (s *Set) Paths() []string {
	paths := make([]string, len(s.sinks))
	for i, sink := range s.sinks {
		paths[i] = sink.Path()
	}
	return paths
}
