// Package verification runs one face verification end to end: it validates
// the two uploads, stores them as temporary files, asks the encoder for
// embeddings, decides, and records the outcome in the ledger.
//
// Temporary files are removed on every return path. A missing face is a
// regular no_match outcome, never an error.
package verification

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"face_verification/internal/decision"
	"face_verification/internal/encoder"
	sl "face_verification/internal/lib/logger"
	"face_verification/internal/metrics"
	"face_verification/internal/models"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInternal     = errors.New("internal error")
)

// InputError carries a client-facing message and matches ErrInvalidInput.
type InputError struct {
	Msg string
}

func (e *InputError) Error() string { return e.Msg }

func (e *InputError) Unwrap() error { return ErrInvalidInput }

func inputErr(format string, args ...any) error {
	return &InputError{Msg: fmt.Sprintf(format, args...)}
}

var AllowedExtensions = []string{".jpg", ".jpeg", ".png"}

const (
	MessageNoFace = "No face detected in one or both images."

	persistTimeout = 10 * time.Second
)

// Upload is one image as received from the client. Size may be -1 when unknown.
type Upload struct {
	Filename string
	Size     int64
	Content  io.Reader
}

type Outcome struct {
	VerificationID string
	Result         models.Result
	Confidence     float64
	Message        string
}

type Recorder interface {
	Record(
		ctx context.Context,
		userID, image1Ref, image2Ref string,
		result models.Result,
		confidence float64,
	) (models.VerificationRecord, error)
}

type Publisher interface {
	Publish(ctx context.Context, event models.VerificationEvent) error
}

type Observer interface {
	ObserveVerification(result models.Result)
	ObserveFailure(stage string)
	ObserveEncoder(d time.Duration)
}

type Config struct {
	UploadDir      string
	MaxFileSize    int64
	EncoderTimeout time.Duration
}

type Service struct {
	log       *slog.Logger
	policy    decision.Policy
	encoder   encoder.Encoder
	ledger    Recorder
	observer  Observer
	publisher Publisher
	cfg       Config
}

func New(
	log *slog.Logger,
	policy decision.Policy,
	enc encoder.Encoder,
	ledger Recorder,
	observer Observer,
	cfg Config,
) *Service {
	if observer == nil {
		observer = noopObserver{}
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = "uploads"
	}

	return &Service{
		log:      log,
		policy:   policy,
		encoder:  enc,
		ledger:   ledger,
		observer: observer,
		cfg:      cfg,
	}
}

// WithPublisher enables best-effort verification.completed events.
func (s *Service) WithPublisher(p Publisher) *Service {
	s.publisher = p
	return s
}

func (s *Service) Policy() decision.Policy {
	return s.policy
}

func (s *Service) MaxFileSize() int64 {
	return s.cfg.MaxFileSize
}

// Verify compares the faces in the two uploads for user.
func (s *Service) Verify(ctx context.Context, user models.User, img1, img2 Upload) (Outcome, error) {
	const op = "verification.Verify"

	log := s.log.With(
		slog.String("op", op),
		slog.String("uid", user.ID),
	)

	if user.ID == "" {
		return Outcome{}, fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}

	for _, img := range []Upload{img1, img2} {
		if err := s.validate(img); err != nil {
			s.observer.ObserveFailure(metrics.StageInput)
			return Outcome{}, fmt.Errorf("%s: %w", op, err)
		}
	}

	var paths []string
	defer func() {
		s.cleanup(log, paths)
	}()

	for i, img := range []Upload{img1, img2} {
		path, err := s.save(user.ID, i+1, img)
		if path != "" {
			paths = append(paths, path)
		}
		if err != nil {
			var inErr *InputError
			if errors.As(err, &inErr) {
				s.observer.ObserveFailure(metrics.StageInput)
				return Outcome{}, fmt.Errorf("%s: %w", op, err)
			}

			log.Error("failed to store upload", sl.Err(err))
			s.observer.ObserveFailure(metrics.StageStorage)
			return Outcome{}, fmt.Errorf("%s: %w: %w", op, ErrInternal, err)
		}
	}

	det1, det2, err := s.encode(ctx, paths[0], paths[1])
	if err != nil {
		log.Error("encoder failed", sl.Err(err))
		s.observer.ObserveFailure(metrics.StageEncoder)
		return Outcome{}, fmt.Errorf("%s: %w: %w", op, ErrInternal, err)
	}

	dec, err := s.decide(det1, det2)
	if err != nil {
		log.Error("failed to decide", sl.Err(err))
		s.observer.ObserveFailure(metrics.StageDecide)
		return Outcome{}, fmt.Errorf("%s: %w: %w", op, ErrInternal, err)
	}

	// The record must be written even if the client goes away now.
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	rec, err := s.ledger.Record(
		persistCtx,
		user.ID,
		filepath.Base(paths[0]),
		filepath.Base(paths[1]),
		dec.Result,
		dec.Confidence,
	)
	if err != nil {
		log.Error("failed to record verification", sl.Err(err))
		s.observer.ObserveFailure(metrics.StagePersist)
		return Outcome{}, fmt.Errorf("%s: %w: %w", op, ErrInternal, err)
	}

	s.observer.ObserveVerification(rec.Result)
	s.publish(persistCtx, log, rec)

	log.Info("verification completed",
		slog.String("verification_id", rec.ID),
		slog.String("result", string(rec.Result)),
		slog.Float64("confidence", rec.ConfidenceScore),
		slog.Bool("face_detected", dec.FaceDetected),
	)

	return Outcome{
		VerificationID: rec.ID,
		Result:         rec.Result,
		Confidence:     rec.ConfidenceScore,
		Message:        Message(dec),
	}, nil
}

// Message renders the human readable summary of a decision.
func Message(d decision.Decision) string {
	if !d.FaceDetected {
		return MessageNoFace
	}

	if d.Result == models.ResultMatch {
		return fmt.Sprintf("Same person detected! (Confidence: %.2f%%)", d.Confidence*100)
	}

	return fmt.Sprintf("Different persons detected. (Confidence: %.2f%%)", d.Confidence*100)
}

func (s *Service) validate(img Upload) error {
	if img.Content == nil {
		return inputErr("Both image1 and image2 are required")
	}

	if strings.TrimSpace(img.Filename) == "" {
		return inputErr("Invalid file: filename is empty")
	}

	if !slices.Contains(AllowedExtensions, extension(img.Filename)) {
		return inputErr("Invalid file type. Allowed: %s", strings.Join(AllowedExtensions, ", "))
	}

	if img.Size == 0 {
		return inputErr("Invalid file: %s is empty", img.Filename)
	}

	if s.cfg.MaxFileSize > 0 && img.Size > s.cfg.MaxFileSize {
		return s.tooLarge()
	}

	return nil
}

func (s *Service) tooLarge() error {
	if s.cfg.MaxFileSize < 1<<20 {
		return inputErr("File too large. Maximum size is %d bytes", s.cfg.MaxFileSize)
	}

	return inputErr("File too large. Maximum size is %dMB", s.cfg.MaxFileSize>>20)
}

// save writes the upload as {user_id}_{uuid}_{n}{ext} in the upload dir.
// The returned path is non-empty whenever a file was created.
func (s *Service) save(userID string, n int, img Upload) (string, error) {
	if err := os.MkdirAll(s.cfg.UploadDir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create upload dir: %w", err)
	}

	name := fmt.Sprintf("%s_%s_%d%s", userID, uuid.NewString(), n, extension(img.Filename))
	path := filepath.Join(s.cfg.UploadDir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}

	src := img.Content
	if s.cfg.MaxFileSize > 0 {
		src = io.LimitReader(src, s.cfg.MaxFileSize+1)
	}

	written, err := io.Copy(f, src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return path, fmt.Errorf("failed to write temp file: %w", err)
	}

	if written == 0 {
		return path, inputErr("Invalid file: %s is empty", img.Filename)
	}
	if s.cfg.MaxFileSize > 0 && written > s.cfg.MaxFileSize {
		return path, s.tooLarge()
	}

	return path, nil
}

// encode runs both images through the encoder concurrently. It returns once
// EncoderTimeout elapses even if the encoder ignores cancellation.
func (s *Service) encode(ctx context.Context, path1, path2 string) (encoder.Detection, encoder.Detection, error) {
	if s.cfg.EncoderTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.EncoderTimeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		s.observer.ObserveEncoder(time.Since(start))
	}()

	var det [2]encoder.Detection

	g, gctx := errgroup.WithContext(ctx)
	for i, path := range []string{path1, path2} {
		g.Go(func() error {
			d, err := s.encoder.Encode(gctx, path)
			if err != nil {
				return fmt.Errorf("image%d: %w", i+1, err)
			}
			det[i] = d
			return nil
		})
	}

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			return encoder.Detection{}, encoder.Detection{}, err
		}
		return det[0], det[1], nil
	case <-ctx.Done():
		return encoder.Detection{}, encoder.Detection{}, ctx.Err()
	}
}

func (s *Service) decide(det1, det2 encoder.Detection) (decision.Decision, error) {
	emb1, ok1 := det1.Embedding()
	emb2, ok2 := det2.Embedding()
	if !ok1 || !ok2 {
		return decision.NoFace(), nil
	}

	distance, err := encoder.Distance(s.policy.Metric, emb1, emb2)
	if err != nil {
		return decision.Decision{}, err
	}

	return s.policy.Decide(distance), nil
}

func (s *Service) publish(ctx context.Context, log *slog.Logger, rec models.VerificationRecord) {
	if s.publisher == nil {
		return
	}

	err := s.publisher.Publish(ctx, models.VerificationEvent{
		VerificationID:  rec.ID,
		UserID:          rec.UserID,
		Result:          rec.Result,
		ConfidenceScore: rec.ConfidenceScore,
		CreatedAt:       rec.CreatedAt,
	})
	if err != nil {
		log.Warn("failed to publish verification event", sl.Err(err))
	}
}

func (s *Service) cleanup(log *slog.Logger, paths []string) {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn("failed to remove temp file", slog.String("path", p), sl.Err(err))
		}
	}
}

func extension(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}

type noopObserver struct{}

func (noopObserver) ObserveVerification(models.Result) {}
func (noopObserver) ObserveFailure(string) {}
func (noopObserver) ObserveEncoder(time.Duration) {}
