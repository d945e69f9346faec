// Package storage persists sweep samples as CSV and per-σ fits as JSON.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Roetd/PrimeNumberFluctuationStationarity/internal/asymptotic"
)

// DefaultPrefix names output files when Options.Prefix is empty.
const DefaultPrefix = "psiscan"

var samplesHeader = []string{
	"sigma", "t", "limit", "value", "abs_err", "converged", "truncations", "duration_ms",
}

// Key identifies one grid point.
type Key struct {
	Sigma float64
	T     float64
}

// Record is one computed I(T, σ).
type Record struct {
	Sigma       float64
	T           float64
	Limit       float64
	Value       float64
	AbsErr      float64
	Converged   bool
	Truncations int
	Duration    time.Duration
}

// Key returns the grid point of r.
func (r Record) Key() Key { return Key{Sigma: r.Sigma, T: r.T} }

// FitSummary is the JSON form of one per-σ fit.
type FitSummary struct {
	Sigma float64 `json:"sigma"`
	Slope float64 `json:"slope"`
	C     float64 `json:"c"`
	// EmpiricalSlope is omitted when fewer than two distinct T were fitted.
	EmpiricalSlope *float64            `json:"empirical_slope,omitempty"`
	MaxOscillation float64             `json:"max_oscillation"`
	Samples        []asymptotic.Sample `json:"samples"`
}

// NewFitSummary converts a fit into its JSON form.
func NewFitSummary(r asymptotic.FitResult) FitSummary {
	s := FitSummary{
		Sigma:          r.Sigma,
		Slope:          r.Slope,
		C:              r.C,
		MaxOscillation: r.MaxOscillation(),
		Samples:        r.Samples,
	}
	if !math.IsNaN(r.EmpiricalSlope) && !math.IsInf(r.EmpiricalSlope, 0) {
		v := r.EmpiricalSlope
		s.EmpiricalSlope = &v
	}
	return s
}

// Summary is the content of the summary file.
type Summary struct {
	GeneratedAt time.Time    `json:"generated_at"`
	Fits        []FitSummary `json:"fits"`
}

// Options configures a Manager.
type Options struct {
	Directory string
	Prefix    string
	// SaveSamples and SaveSummary switch the two outputs on.
	SaveSamples bool
	SaveSummary bool
}

// Manager owns the output files of one run.
type Manager struct {
	opts   Options
	logger logrus.FieldLogger
	mu     sync.Mutex

	samplesPath   string
	summaryPath   string
	samplesFile   *os.File
	samplesWriter *csv.Writer

	samplesSaved   int64
	summariesSaved int64
}

// SamplesPath returns the sample file for a directory and prefix.
func SamplesPath(dir, prefix string) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return filepath.Join(dir, prefix+"_samples.csv")
}

// SummaryPath returns the summary file for a directory and prefix.
func SummaryPath(dir, prefix string) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return filepath.Join(dir, prefix+"_summary.json")
}

// NewManager creates the output directory and opens the sample file for
// appending, writing the header if the file is new.
func NewManager(opts Options, logger logrus.FieldLogger) (*Manager, error) {
	if opts.Directory == "" {
		opts.Directory = "."
	}
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}

	if err := os.MkdirAll(opts.Directory, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	m := &Manager{
		opts:        opts,
		logger:      logger,
		samplesPath: SamplesPath(opts.Directory, opts.Prefix),
		summaryPath: SummaryPath(opts.Directory, opts.Prefix),
	}
	if err := m.initializeFiles(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) initializeFiles() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.opts.SaveSamples {
		return nil
	}

	file, err := os.OpenFile(m.samplesPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open samples file: %w", err)
	}
	m.samplesFile = file
	m.samplesWriter = csv.NewWriter(file)

	stat, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat samples file: %w", err)
	}
	if stat.Size() == 0 {
		if err := m.samplesWriter.Write(samplesHeader); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
		m.samplesWriter.Flush()
		if err := m.samplesWriter.Error(); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}
	return nil
}

// SamplesPath returns the sample file path.
func (m *Manager) SamplesPath() string { return m.samplesPath }

// SummaryPath returns the summary file path.
func (m *Manager) SummaryPath() string { return m.summaryPath }

// SaveSample appends one record and flushes it so an interrupted run can
// resume from it. Safe for concurrent use.
func (m *Manager) SaveSample(r Record) error {
	if !m.opts.SaveSamples {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.samplesWriter == nil {
		return errors.New("samples file is closed")
	}

	record := []string{
		formatFloat(r.Sigma),
		formatFloat(r.T),
		formatFloat(r.Limit),
		formatFloat(r.Value),
		formatFloat(r.AbsErr),
		strconv.FormatBool(r.Converged),
		strconv.Itoa(r.Truncations),
		strconv.FormatFloat(float64(r.Duration)/float64(time.Millisecond), 'f', 3, 64),
	}
	if err := m.samplesWriter.Write(record); err != nil {
		return fmt.Errorf("failed to write sample record: %w", err)
	}
	m.samplesWriter.Flush()
	if err := m.samplesWriter.Error(); err != nil {
		return fmt.Errorf("failed to flush samples file: %w", err)
	}

	atomic.AddInt64(&m.samplesSaved, 1)
	return nil
}

// SaveSummary replaces the summary file. The new content is written to a
// temporary file in the same directory and renamed over the old one.
func (m *Manager) SaveSummary(s Summary) error {
	if !m.opts.SaveSummary {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	tmp, err := os.CreateTemp(m.opts.Directory, filepath.Base(m.summaryPath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary summary: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write summary: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync summary: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close summary: %w", err)
	}
	if err := os.Rename(tmpName, m.summaryPath); err != nil {
		return fmt.Errorf("failed to replace summary: %w", err)
	}

	atomic.AddInt64(&m.summariesSaved, 1)
	m.logger.WithField("path", m.summaryPath).Debug("Summary saved")
	return nil
}

// SamplesSaved returns how many records this Manager appended.
func (m *Manager) SamplesSaved() int64 { return atomic.LoadInt64(&m.samplesSaved) }

// Close flushes and closes the sample file.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []string

	if m.samplesWriter != nil {
		m.samplesWriter.Flush()
		if err := m.samplesWriter.Error(); err != nil {
			errs = append(errs, fmt.Sprintf("samples writer: %v", err))
		}
		m.samplesWriter = nil
	}
	if m.samplesFile != nil {
		if err := m.samplesFile.Close(); err != nil {
			errs = append(errs, fmt.Sprintf("samples file: %v", err))
		}
		m.samplesFile = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("storage close errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// LoadSamples reads a sample file written by SaveSample. A missing file
// yields an empty map. Later rows win over earlier ones for the same key.
func LoadSamples(path string) (map[Key]Record, error) {
	out := make(map[Key]Record)

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return out, nil
		}
		return nil, fmt.Errorf("failed to open samples file: %w", err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = len(samplesHeader)

	line := 0
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if line == 1 && row[0] == samplesHeader[0] {
			continue
		}

		rec, err := parseRecord(row)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		out[rec.Key()] = rec
	}
	return out, nil
}

func parseRecord(row []string) (Record, error) {
	var (
		rec  Record
		errs []error
	)
	parse := func(s string) float64 {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}

	rec.Sigma = parse(row[0])
	rec.T = parse(row[1])
	rec.Limit = parse(row[2])
	rec.Value = parse(row[3])
	rec.AbsErr = parse(row[4])
	converged, err := strconv.ParseBool(row[5])
	if err != nil {
		errs = append(errs, err)
	}
	rec.Converged = converged
	truncations, err := strconv.Atoi(row[6])
	if err != nil {
		errs = append(errs, err)
	}
	rec.Truncations = truncations
	rec.Duration = time.Duration(parse(row[7]) * float64(time.Millisecond))

	if len(errs) > 0 {
		return Record{}, errors.Join(errs...)
	}
	return rec, nil
}

// formatFloat writes the shortest representation that parses back exactly.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
