package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	mapset "github.com/deckarep/golang-set/v2"
	"golang.org/x/time/rate"

	"deckpilot/api/client"
	"deckpilot/util"
)

const (
	remoteCheckInterval = time.Duration(1 * time.Hour)

	// RemoteCategory is the library category the shared card pack syncs into.
	RemoteCategory = "remote"
)

// ErrRemoteDisabled is returned when the AWS environment variables are not
// set; remote sync is optional.
var ErrRemoteDisabled = errors.New("remote card pack sync not configured")

// RemoteManager mirrors a shared S3 card pack into the library's remote
// category, keeping the registry in sync through the card client.
type RemoteManager struct {
	client *s3.Client

	profile  string
	s3Bucket string

	outputPath string

	cardClient *client.CardClient

	// downloadLimiter paces S3 object downloads so a large pack sync cannot
	// saturate the uplink the emulator shares.
	downloadLimiter *rate.Limiter

	Updated chan bool
}

func NewRemoteManager(libraryDir, webServerURL string) (*RemoteManager, error) {
	outputPath := filepath.Join(libraryDir, RemoteCategory)

	awsProfileName := os.Getenv("DECKPILOT_AWS_PROFILE")
	s3Bucket := os.Getenv("DECKPILOT_S3_BUCKET")
	if awsProfileName == "" || s3Bucket == "" {
		return nil, ErrRemoteDisabled
	}

	if err := os.MkdirAll(outputPath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create remote category directory: %w", err)
	}

	// Load the Shared AWS Configuration (~/.aws/config)
	ctxCfg, cancelCfg := context.WithTimeout(context.Background(), time.Duration(3*time.Second))
	cfg, err := awsconfig.LoadDefaultConfig(
		ctxCfg,
		awsconfig.WithSharedConfigProfile(awsProfileName),
	)
	cancelCfg()
	if err != nil {
		return nil, err
	}

	return &RemoteManager{
		client:          s3.NewFromConfig(cfg),
		profile:         awsProfileName,
		s3Bucket:        s3Bucket,
		outputPath:      outputPath,
		cardClient:      client.NewCardClient(webServerURL),
		downloadLimiter: rate.NewLimiter(rate.Every(time.Second), 3),
		Updated:         make(chan bool, 1),
	}, nil
}

func (r *RemoteManager) GetS3Objects(ctx context.Context) ([]s3types.Object, error) {
	// Get the first page of results for ListObjectsV2 for a bucket
	output, err := r.client.ListObjectsV2(
		ctx,
		&s3.ListObjectsV2Input{
			Bucket: aws.String(r.s3Bucket),
		},
	)
	if err != nil {
		return nil, err
	}

	return output.Contents, nil
}

func (r *RemoteManager) DownloadObject(ctx context.Context, name string) error {
	if err := r.downloadLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("download rate limit wait interrupted, %w", err)
	}

	downloader := manager.NewDownloader(r.client)

	f, err := os.Create(filepath.Join(r.outputPath, name))
	if err != nil {
		return fmt.Errorf("unable to create file for s3 download, %s, %w", name, err)
	}
	defer f.Close()

	if _, err := downloader.Download(ctx, f, &s3.GetObjectInput{
		Bucket: aws.String(r.s3Bucket),
		Key:    aws.String(name),
	}); err != nil {
		return fmt.Errorf("unable to download object from s3, %s, %w", name, err)
	}
	return nil
}

func (r *RemoteManager) getLocalFiles() (mapset.Set[string], error) {
	dirs, err := os.ReadDir(r.outputPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read directory, %s, %w", r.outputPath, err)
	}

	localFiles := mapset.NewSet[string]()
	for _, dir := range dirs {
		name := dir.Name()
		if !util.SupportedExt.Contains(filepath.Ext(name)) {
			continue
		}
		localFiles.Add(name)
	}

	if localFiles.Cardinality() == 0 {
		slog.Info("no local card pack files found")
	}
	return localFiles, nil
}

func (r *RemoteManager) getRemoteFiles(ctx context.Context) (mapset.Set[string], error) {
	remoteFiles := mapset.NewSet[string]()
	objects, err := r.GetS3Objects(ctx)
	if err != nil {
		return nil, err
	}
	for _, object := range objects {
		name := aws.ToString(object.Key)
		if !util.SupportedExt.Contains(filepath.Ext(name)) {
			continue
		}
		remoteFiles.Add(name)
	}

	if remoteFiles.Cardinality() == 0 {
		slog.Info("no remote card pack files found")
	}
	return remoteFiles, nil
}

func (r *RemoteManager) SyncFolder(ctx context.Context) error {
	localFiles, err := r.getLocalFiles()
	if err != nil {
		return err
	}

	remoteFiles, err := r.getRemoteFiles(ctx)
	if err != nil {
		return err
	}

	toDelete := localFiles.Difference(remoteFiles).ToSlice()
	toDownload := remoteFiles.Difference(localFiles).ToSlice()
	if len(toDelete) > 0 {
		slog.Info("deleting local card pack files", "count", len(toDelete), "names", toDelete)
		for _, name := range toDelete {
			filePath := filepath.Join(r.outputPath, name)
			if err := os.Remove(filePath); err != nil {
				slog.Warn("unable to remove local file", "error", err)
			}
		}
	}
	if len(toDownload) > 0 {
		slog.Info("adding card pack files", "count", len(toDownload), "names", toDownload)
		for _, name := range toDownload {
			err := r.DownloadObject(ctx, name)
			if err != nil {
				slog.Warn("error while downloading s3 object", "name", name, "error", err)
				continue
			}

			// Register card in database via web server
			cardPath := filepath.Join(r.outputPath, name)
			if err := r.cardClient.RegisterCardIfNotExists(cardPath, RemoteCategory); err != nil {
				slog.Warn("error while registering card", "name", name, "error", err)
				// Continue even if registration fails - file is downloaded
			}
		}
	}

	// After syncing with S3, ensure DB is in sync with local files for the
	// remote category
	localFiles, err = r.getLocalFiles()
	if err != nil {
		slog.Warn("error getting local files for DB sync", "error", err)
	} else {
		// Ensure all local files are registered
		for _, name := range localFiles.ToSlice() {
			cardPath := filepath.Join(r.outputPath, name)
			if err := r.cardClient.RegisterCardIfNotExists(cardPath, RemoteCategory); err != nil {
				slog.Warn("error while registering local card", "name", name, "error", err)
			}
		}

		// Get all registered remote-category cards from DB
		registeredCards, err := r.cardClient.GetCards(RemoteCategory)
		if err != nil {
			slog.Warn("error getting registered cards from DB", "error", err)
		} else {
			// Create set of registered card names
			registeredNames := mapset.NewSet[string]()
			for _, card := range registeredCards {
				registeredNames.Add(card.CardName)
			}

			// Find cards registered in DB but not present locally
			toDeregister := registeredNames.Difference(localFiles).ToSlice()
			if len(toDeregister) > 0 {
				slog.Info("deregistering cards not present locally", "count", len(toDeregister), "names", toDeregister)
				for _, name := range toDeregister {
					if err := r.cardClient.DeleteCard(name, RemoteCategory); err != nil {
						slog.Warn("error while deregistering card", "name", name, "error", err)
					}
				}
			}
		}
	}

	// Only signal update if there were actual changes
	if len(toDelete) > 0 || len(toDownload) > 0 {
		select {
		case r.Updated <- true:
		default:
		}
	}
	return nil
}

func (r *RemoteManager) Run() {
	ticker := time.NewTicker(remoteCheckInterval)

	// Initial sync
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(30*time.Minute))
	if err := r.SyncFolder(ctx); err != nil {
		slog.Warn("error while syncing with remote", "error", err)
	}
	cancel()

	for range ticker.C {
		ctx, cancel = context.WithTimeout(context.Background(), time.Duration(30*time.Minute))
		if err := r.SyncFolder(ctx); err != nil {
			slog.Warn("error while syncing with remote", "error", err)
		}
		cancel()
	}
}
