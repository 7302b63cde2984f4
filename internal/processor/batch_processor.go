package processor

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"cphhousing/config"
	"cphhousing/internal/models"
	"cphhousing/internal/queue"
)

// Header is the first record of every output file.
var Header = []string{"member_code", "address", "dawa_address", "confidence", "lat", "long"}

// Geocoder resolves free text addresses.
type Geocoder interface {
	Geocode(ctx context.Context, text string) models.GeocodeResult
}

// Stats summarizes a finished run.
type Stats struct {
	Read      int
	Skipped   int
	Processed int
	Written   int
}

// BatchProcessor geocodes a semicolon separated member_code;address file
// and writes every located row to out, preserving input order.
type BatchProcessor struct {
	geocoder Geocoder
	queue    *queue.AddressQueue
	config   *config.Config
	logger   *logrus.Logger
	out      *csv.Writer

	ctx   context.Context
	mu    sync.Mutex
	stats Stats
	err   error
}

// NewBatchProcessor creates a new batch processor instance
func NewBatchProcessor(geocoder Geocoder, q *queue.AddressQueue, out io.Writer, cfg *config.Config, logger *logrus.Logger) *BatchProcessor {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	w := csv.NewWriter(out)
	w.Comma = ';'
	return &BatchProcessor{
		geocoder: geocoder,
		queue:    q,
		config:   cfg,
		logger:   logger,
		out:      w,
	}
}

// Run reads every row of in, geocodes it through the queue and returns
// once all output has been flushed. A processor runs once.
func (p *BatchProcessor) Run(ctx context.Context, in io.Reader) (Stats, error) {
	p.ctx = ctx
	if err := p.out.Write(Header); err != nil {
		return Stats{}, fmt.Errorf("failed to write header: %w", err)
	}

	p.queue.Subscribe(p.processBatch)
	p.queue.Start()

	feedErr := p.feed(ctx, in)
	p.queue.Close()
	p.queue.Wait()

	p.out.Flush()

	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case feedErr != nil:
		return p.stats, feedErr
	case p.err != nil:
		return p.stats, p.err
	}
	if err := p.out.Error(); err != nil {
		return p.stats, fmt.Errorf("failed to write output: %w", err)
	}

	p.logger.WithFields(logrus.Fields{
		"read":      p.stats.Read,
		"skipped":   p.stats.Skipped,
		"processed": p.stats.Processed,
		"written":   p.stats.Written,
	}).Info("Batch geocoding finished")
	return p.stats, nil
}

// feed splits the input into batches and pushes them onto the queue.
func (p *BatchProcessor) feed(ctx context.Context, in io.Reader) error {
	r := csv.NewReader(bufio.NewReader(in))
	r.Comma = ';'
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	size := p.config.BatchProcessing.MaxBatchSize
	if size < 1 {
		size = 1
	}
	batch := make([]models.AddressRow, 0, size)
	line := 0
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				p.skip(line, err)
				continue
			}
			return fmt.Errorf("failed to read input: %w", err)
		}
		if len(record) < 2 {
			p.skip(line, fmt.Errorf("expected 2 fields, got %d", len(record)))
			continue
		}

		p.mu.Lock()
		p.stats.Read++
		p.mu.Unlock()

		batch = append(batch, models.AddressRow{
			Line:       line,
			MemberCode: strings.TrimSpace(strings.TrimPrefix(record[0], "\ufeff")),
			Address:    strings.TrimSpace(record[1]),
		})
		if len(batch) == size {
			if err := p.queue.PushWait(ctx, batch); err != nil {
				return fmt.Errorf("failed to queue batch: %w", err)
			}
			batch = make([]models.AddressRow, 0, size)
		}
	}

	if len(batch) > 0 {
		if err := p.queue.PushWait(ctx, batch); err != nil {
			return fmt.Errorf("failed to queue batch: %w", err)
		}
	}
	return nil
}

func (p *BatchProcessor) skip(line int, err error) {
	p.logger.WithError(err).WithField("line", line).Warn("Split failed, skipping row")
	p.mu.Lock()
	p.stats.Skipped++
	p.mu.Unlock()
}

// processBatch geocodes a batch in order and writes the located rows.
func (p *BatchProcessor) processBatch(batch []models.AddressRow) error {
	for i := range batch {
		if err := p.ctx.Err(); err != nil {
			p.fail(err)
			return err
		}

		row := &batch[i]
		row.Result = p.geocoder.Geocode(p.ctx, row.Address)

		p.mu.Lock()
		p.stats.Processed++
		processed := p.stats.Processed
		p.mu.Unlock()

		if every := p.config.BatchProcessing.ProgressEvery; every > 0 && processed%every == 0 {
			p.logger.Infof("Processed %d addresses", processed)
		}

		if !row.Result.HasCoordinates() {
			p.logger.WithFields(logrus.Fields{
				"line":    row.Line,
				"address": row.Address,
			}).Debug("Address not located")
			continue
		}
		if err := p.out.Write(Record(*row)); err != nil {
			err = fmt.Errorf("failed to write row %d: %w", row.Line, err)
			p.fail(err)
			return err
		}

		p.mu.Lock()
		p.stats.Written++
		p.mu.Unlock()
	}

	p.out.Flush()
	return p.out.Error()
}

func (p *BatchProcessor) fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err == nil {
		p.err = err
	}
}

// Record formats a located row. Coordinates use a decimal comma.
func Record(row models.AddressRow) []string {
	return []string{
		row.MemberCode,
		row.Address,
		row.Result.Address,
		row.Result.Confidence,
		decimalComma(*row.Result.Latitude),
		decimalComma(*row.Result.Longitude),
	}
}

func decimalComma(v float64) string {
	return strings.Replace(strconv.FormatFloat(v, 'f', -1, 64), ".", ",", 1)
}
