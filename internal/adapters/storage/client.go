// Package storage archives patient voice recordings in MinIO. Provider
// recording URLs expire; archived copies are the durable source for the
// care team.
package storage

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"sabcare_backend/platform/config"
)

const (
	// PresignedURLTTL is the expiration time for playback URLs.
	PresignedURLTTL = 15 * time.Minute

	downloadTimeout = 30 * time.Second
)

// RecordingArchive stores call recordings in a MinIO bucket. A nil
// archive is valid and skips archival, leaving only the provider URL.
type RecordingArchive struct {
	client *minio.Client
	bucket string

	// Provider recording URLs require basic auth.
	authUser string
	authPass string

	httpClient *http.Client
}

// NewRecordingArchive creates the archive, or returns nil when MinIO is
// not configured.
func NewRecordingArchive(cfg config.StorageConfig, twilio config.TwilioConfig) (*RecordingArchive, error) {
	if !cfg.IsMinIOEnabled() {
		return nil, nil
	}

	client, err := minio.New(cfg.GetMinIOEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetMinIOAccessKey(), cfg.GetMinIOSecretKey(), ""),
		Secure: cfg.GetMinIOUseSSL(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &RecordingArchive{
		client:     client,
		bucket:     cfg.GetMinIORecordingsBucket(),
		authUser:   twilio.GetTwilioAccountSID(),
		authPass:   twilio.GetTwilioAuthToken(),
		httpClient: &http.Client{Timeout: downloadTimeout},
	}, nil
}

// EnsureBucket creates the recordings bucket if it doesn't exist.
func (a *RecordingArchive) EnsureBucket(ctx context.Context) error {
	if a == nil {
		return nil
	}

	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", a.bucket, err)
		}
	}
	return nil
}

// ArchiveRecording downloads the provider recording and stores it under
// recordings/<patientID>/<messageID>.mp3, returning the object key.
func (a *RecordingArchive) ArchiveRecording(ctx context.Context, patientID, messageID uuid.UUID, recordingURL string) (string, error) {
	if a == nil {
		return "", nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, recordingURL+".mp3", nil)
	if err != nil {
		return "", fmt.Errorf("invalid recording url: %w", err)
	}
	if a.authUser != "" {
		req.SetBasicAuth(a.authUser, a.authPass)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download recording: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("recording download returned status %d", resp.StatusCode)
	}

	objectKey := path.Join("recordings", patientID.String(), messageID.String()+".mp3")
	_, err = a.client.PutObject(ctx, a.bucket, objectKey, resp.Body, resp.ContentLength, minio.PutObjectOptions{
		ContentType: "audio/mpeg",
	})
	if err != nil {
		return "", fmt.Errorf("failed to store recording %s: %w", objectKey, err)
	}
	return objectKey, nil
}

// PlaybackURL creates a presigned download URL for an archived recording.
func (a *RecordingArchive) PlaybackURL(ctx context.Context, objectKey string) (string, error) {
	if a == nil {
		return "", fmt.Errorf("recording archive not configured")
	}

	presigned, err := a.client.PresignedGetObject(ctx, a.bucket, objectKey, PresignedURLTTL, url.Values{})
	if err != nil {
		return "", fmt.Errorf("failed to presign recording url: %w", err)
	}
	return presigned.String(), nil
}
