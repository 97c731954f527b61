package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"caku/internal/apperr"
	"caku/internal/clients/httpx"
	"caku/internal/ids"
	"caku/internal/media/sniffer"
	"caku/internal/models"
	"caku/internal/repository"
	"caku/internal/security"
	"caku/internal/session"
)

const (
	minPinLength      = 4
	inlineRemoteLimit = 20 << 20
)

// Upload is an incoming video. Fetch loads the content when Data is nil and
// must fail with httpx.ErrBodyTooLarge rather than truncate past limit.
type Upload struct {
	Data     []byte
	FileName string
	MIMEType string
	Size     int64
	Fetch    func(ctx context.Context, limit int64) ([]byte, error)
}

// VideoContent is what the bot sends back for a stored video. Local
// videos carry Data; remote ones carry a presigned URL and, when small
// enough, the bytes as well.
type VideoContent struct {
	Video models.VaultVideo
	Data  []byte
	URL   string
}

type VaultUsage struct {
	RemoteObjects int
	RemoteBytes   int64
}

type VaultConfig struct {
	Timeout        time.Duration
	LocalDir       string
	MaxUploadBytes int64
}

type VaultService struct {
	store    VaultStore
	sessions session.Store
	cipher   *security.PinCipher
	objects  ObjectStore
	cfg      VaultConfig
	now      func() time.Time
	log      zerolog.Logger
}

// NewVaultService wires the vault. objects may be nil, in which case remote
// uploads are rejected.
func NewVaultService(store VaultStore, sessions session.Store, cipher *security.PinCipher, objects ObjectStore, cfg VaultConfig, log zerolog.Logger) *VaultService {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Minute
	}
	return &VaultService{
		store:    store,
		sessions: sessions,
		cipher:   cipher,
		objects:  objects,
		cfg:      cfg,
		now:      time.Now,
		log:      log,
	}
}

func (s *VaultService) WithClock(now func() time.Time) *VaultService {
	s.now = now
	return s
}

func (s *VaultService) Timeout() time.Duration {
	return s.cfg.Timeout
}

func (s *VaultService) SetPin(ctx context.Context, userID string, pin string) error {
	pin = strings.TrimSpace(pin)
	if len(pin) < minPinLength {
		return ErrPinTooShort
	}

	if _, err := s.store.GetCredential(ctx, userID); err == nil {
		return ErrPinAlreadySet
	} else if !errors.Is(err, repository.ErrCredentialNotFound) {
		return apperr.Downstream("gagal memeriksa PIN", err)
	}

	sealed, err := s.cipher.Seal(userID, pin)
	if err != nil {
		return apperr.Downstream("gagal mengenkripsi PIN", err)
	}

	if err := s.store.InsertCredential(ctx, userID, sealed); err != nil {
		if errors.Is(err, repository.ErrCredentialExists) {
			return ErrPinAlreadySet
		}
		return apperr.Downstream("gagal menyimpan PIN", err)
	}

	s.log.Info().Str("user_id", userID).Msg("vault pin set")
	return nil
}

func (s *VaultService) Login(ctx context.Context, userID string, pin string) error {
	cred, err := s.store.GetCredential(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrCredentialNotFound) {
			return ErrPinNotSet
		}
		return apperr.Downstream("gagal memuat PIN", err)
	}

	if !s.cipher.Verify(userID, cred.PinCipher, strings.TrimSpace(pin)) {
		s.log.Warn().Str("user_id", userID).Msg("vault login rejected")
		return ErrInvalidPin
	}

	sess := session.Session{
		UserID:             userID,
		VaultAuthenticated: true,
		LastActivity:       s.now(),
	}
	if err := s.sessions.Put(ctx, sess); err != nil {
		return apperr.Downstream("gagal membuat sesi", err)
	}
	return nil
}

func (s *VaultService) Logout(ctx context.Context, userID string) error {
	if err := s.sessions.Delete(ctx, userID); err != nil {
		return apperr.Downstream("gagal menghapus sesi", err)
	}
	return nil
}

// requireSession enforces the idle timeout and refreshes LastActivity.
func (s *VaultService) requireSession(ctx context.Context, userID string) (session.Session, error) {
	sess, err := s.sessions.Get(ctx, userID)
	if errors.Is(err, session.ErrNotFound) {
		return session.Session{}, ErrVaultLocked
	}
	if err != nil {
		return session.Session{}, apperr.Downstream("gagal memuat sesi", err)
	}
	if !sess.VaultAuthenticated {
		return session.Session{}, ErrVaultLocked
	}

	now := s.now()
	if sess.Expired(now, s.cfg.Timeout) {
		if err := s.sessions.Delete(ctx, userID); err != nil {
			s.log.Warn().Err(err).Str("user_id", userID).Msg("purge expired session")
		}
		return session.Session{}, ErrSessionExpired
	}

	sess.LastActivity = now
	if err := s.sessions.Put(ctx, sess); err != nil {
		return session.Session{}, apperr.Downstream("gagal memperbarui sesi", err)
	}
	return sess, nil
}

func ParseDestination(raw string) (models.VaultDestination, error) {
	switch models.VaultDestination(strings.ToLower(strings.TrimSpace(raw))) {
	case models.VaultDestinationLocal:
		return models.VaultDestinationLocal, nil
	case models.VaultDestinationRemote:
		return models.VaultDestinationRemote, nil
	default:
		return "", ErrBadDestination
	}
}

// BeginUpload arms the next media message as a vault upload. A newer call
// replaces any upload still pending.
func (s *VaultService) BeginUpload(ctx context.Context, userID string, title string, dest models.VaultDestination) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrEmptyTitle
	}
	if dest == models.VaultDestinationRemote && s.objects == nil {
		return ErrRemoteDisabled
	}

	sess, err := s.requireSession(ctx, userID)
	if err != nil {
		return err
	}

	sess.PendingUpload = &session.PendingUpload{Title: title, Destination: dest}
	if err := s.sessions.Put(ctx, sess); err != nil {
		return apperr.Downstream("gagal menyimpan sesi", err)
	}
	return nil
}

// HasPendingUpload reports whether a media message would be consumed.
func (s *VaultService) HasPendingUpload(ctx context.Context, userID string) bool {
	sess, err := s.sessions.Get(ctx, userID)
	return err == nil && sess.PendingUpload != nil
}

// ConsumeUpload stores media as the pending video. It returns ok=false when
// nothing was pending. The pending state is cleared before storage so a
// failed upload has to be started again.
func (s *VaultService) ConsumeUpload(ctx context.Context, userID string, media Upload) (models.VaultVideo, bool, error) {
	sess, err := s.sessions.Get(ctx, userID)
	if errors.Is(err, session.ErrNotFound) {
		return models.VaultVideo{}, false, nil
	}
	if err != nil {
		return models.VaultVideo{}, false, apperr.Downstream("gagal memuat sesi", err)
	}
	if sess.PendingUpload == nil {
		return models.VaultVideo{}, false, nil
	}

	sess, err = s.requireSession(ctx, userID)
	if err != nil {
		return models.VaultVideo{}, true, err
	}
	pending := *sess.PendingUpload
	sess.PendingUpload = nil
	if err := s.sessions.Put(ctx, sess); err != nil {
		return models.VaultVideo{}, true, apperr.Downstream("gagal menyimpan sesi", err)
	}

	data, err := s.loadUpload(ctx, media)
	if err != nil {
		return models.VaultVideo{}, true, err
	}
	kind, err := sniffer.DetectHead(data)
	if err != nil {
		return models.VaultVideo{}, true, ErrNotAVideo
	}

	video := models.VaultVideo{
		ID:          ids.New(),
		UserID:      userID,
		Title:       pending.Title,
		Destination: pending.Destination,
		MIMEType:    kind.MIME,
		SizeBytes:   int64(len(data)),
		CreatedAt:   s.now(),
	}

	switch pending.Destination {
	case models.VaultDestinationRemote:
		if s.objects == nil {
			return models.VaultVideo{}, true, ErrRemoteDisabled
		}
		key := path.Join(safeSegment(userID), video.ID+kind.Ext())
		if err := s.objects.PutObject(ctx, key, bytes.NewReader(data), video.SizeBytes, kind.MIME); err != nil {
			return models.VaultVideo{}, true, apperr.Downstream("gagal mengunggah video", err)
		}
		video.StorageLocator = key
	default:
		dir := filepath.Join(s.cfg.LocalDir, safeSegment(userID))
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return models.VaultVideo{}, true, apperr.Downstream("gagal menyiapkan folder vault", err)
		}
		file := filepath.Join(dir, video.ID+kind.Ext())
		if err := os.WriteFile(file, data, 0o600); err != nil {
			return models.VaultVideo{}, true, apperr.Downstream("gagal menyimpan video", err)
		}
		video.StorageLocator = file
	}

	if err := s.store.InsertVideo(ctx, video); err != nil {
		return models.VaultVideo{}, true, apperr.Downstream("gagal mencatat video", err)
	}

	s.log.Info().
		Str("user_id", userID).
		Str("video_id", video.ID).
		Str("destination", string(video.Destination)).
		Int64("bytes", video.SizeBytes).
		Msg("vault video stored")
	return video, true, nil
}

func (s *VaultService) loadUpload(ctx context.Context, media Upload) ([]byte, error) {
	limit := s.cfg.MaxUploadBytes
	if limit > 0 && media.Size > limit {
		return nil, ErrUploadTooLarge
	}
	data := media.Data
	if data == nil && media.Fetch != nil {
		var err error
		data, err = media.Fetch(ctx, limit)
		if errors.Is(err, httpx.ErrBodyTooLarge) {
			return nil, ErrUploadTooLarge
		}
		if err != nil {
			return nil, apperr.Downstream("gagal mengunduh video", err)
		}
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, ErrUploadTooLarge
	}
	return data, nil
}

func (s *VaultService) ListVideos(ctx context.Context, userID string) ([]models.VaultVideo, error) {
	if _, err := s.requireSession(ctx, userID); err != nil {
		return nil, err
	}
	videos, err := s.store.ListVideos(ctx, userID)
	if err != nil {
		return nil, apperr.Downstream("gagal memuat daftar video", err)
	}
	return videos, nil
}

// Usage summarises what the user keeps in the remote bucket.
func (s *VaultService) Usage(ctx context.Context, userID string) (VaultUsage, error) {
	if s.objects == nil {
		return VaultUsage{}, nil
	}
	objects, err := s.objects.List(ctx, safeSegment(userID)+"/")
	if err != nil {
		return VaultUsage{}, apperr.Downstream("gagal membaca penyimpanan remote", err)
	}
	usage := VaultUsage{RemoteObjects: len(objects)}
	for _, o := range objects {
		usage.RemoteBytes += o.Size
	}
	return usage, nil
}

// FetchVideo returns the n-th video (1-based, list order).
func (s *VaultService) FetchVideo(ctx context.Context, userID string, n int) (VideoContent, error) {
	videos, err := s.ListVideos(ctx, userID)
	if err != nil {
		return VideoContent{}, err
	}
	if n < 1 || n > len(videos) {
		return VideoContent{}, ErrVideoNotFound
	}
	video := videos[n-1]

	if video.Destination == models.VaultDestinationRemote {
		if s.objects == nil {
			return VideoContent{}, ErrRemoteDisabled
		}
		link, err := s.objects.PresignedGet(ctx, video.StorageLocator)
		if err != nil {
			return VideoContent{}, apperr.Downstream("gagal membuat tautan video", err)
		}
		content := VideoContent{Video: video, URL: link}
		if video.SizeBytes <= inlineRemoteLimit {
			data, err := s.objects.GetObject(ctx, video.StorageLocator)
			if err != nil {
				s.log.Warn().Err(err).Str("video_id", video.ID).Msg("download remote video")
			} else {
				content.Data = data
			}
		}
		return content, nil
	}

	data, err := os.ReadFile(video.StorageLocator)
	if err != nil {
		return VideoContent{}, apperr.Downstream("gagal membaca video", fmt.Errorf("read %s: %w", video.StorageLocator, err))
	}
	return VideoContent{Video: video, Data: data}, nil
}

func safeSegment(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}
