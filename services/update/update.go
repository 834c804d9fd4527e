// Package update implements the two halves of the self-update cycle: Fetch
// streams the files named by a remote manifest into a staging directory, and
// Apply merges a previously staged directory over the installation root at
// boot. Apply is best effort so a single bad file cannot brick the appliance.
package update

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"avnotify/errcode"
)

// ManifestEntry names one file of the release: its path below the manifest's
// base URL and the path it installs to.
type ManifestEntry struct {
	Remote string `json:"remote"`
	Local  string `json:"local"`
}

type Updater struct {
	manifestURL string
	stagingDir  string
	client      *http.Client
	log         zerolog.Logger
}

func New(manifestURL, stagingDir string, log zerolog.Logger) *Updater {
	return &Updater{
		manifestURL: manifestURL,
		stagingDir:  stagingDir,
		client:      &http.Client{Timeout: 30 * time.Second},
		log:         log.With().Str("service", "update").Logger(),
	}
}

// Fetch downloads the manifest and every file it lists into the staging
// directory, aborting on the first failure. It returns the number of files
// staged. The staged files take effect after a restart, when Apply runs.
func (u *Updater) Fetch(ctx context.Context) (int, error) {
	if u.manifestURL == "" {
		return 0, &errcode.E{C: errcode.InvalidArgument, Op: "update.Fetch", Msg: "no manifest url configured"}
	}

	entries, base, err := u.fetchManifest(ctx)
	if err != nil {
		return 0, err
	}
	u.log.Info().Int("files", len(entries)).Msg("manifest fetched")

	if err := os.MkdirAll(u.stagingDir, 0o755); err != nil {
		return 0, err
	}

	for i, e := range entries {
		local, err := stagingPath(u.stagingDir, e.Local)
		if err != nil {
			return i, err
		}
		u.log.Info().Str("file", e.Local).Msg("downloading")
		if err := u.download(ctx, base+"/"+strings.Trim(e.Remote, "/"), local); err != nil {
			return i, fmt.Errorf("download %s: %w", e.Local, err)
		}
	}
	u.log.Info().Int("files", len(entries)).Msg("update staged, restart to apply")
	return len(entries), nil
}

func (u *Updater) fetchManifest(ctx context.Context) ([]ManifestEntry, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.manifestURL, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := u.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("manifest %s: HTTP %d", u.manifestURL, resp.StatusCode)
	}

	var entries []ManifestEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, "", fmt.Errorf("manifest %s: %w", u.manifestURL, err)
	}

	parsed, err := url.Parse(u.manifestURL)
	if err != nil {
		return nil, "", err
	}
	parsed.Path = strings.TrimSuffix(parsed.Path, "/"+filepath.Base(parsed.Path))
	return entries, strings.TrimSuffix(parsed.String(), "/"), nil
}

// download streams one file to disk so large files never sit in memory whole.
func (u *Updater) download(ctx context.Context, fileURL, local string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return err
	}
	resp, err := u.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
		return err
	}
	f, err := os.Create(local)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// stagingPath joins a manifest-relative path under dir, rejecting entries
// that would escape it.
func stagingPath(dir, local string) (string, error) {
	clean := filepath.Clean("/" + local)
	if clean == "/" {
		return "", &errcode.E{C: errcode.InvalidArgument, Op: "update.Fetch", Msg: "empty local path in manifest"}
	}
	return filepath.Join(dir, clean), nil
}

// Apply merges the staging directory over root and removes it. It runs at
// boot, before anything else opens files. Individual failures are logged and
// skipped; a missing staging directory means no update is pending.
func Apply(root, staging string, log zerolog.Logger) {
	entries, err := os.ReadDir(staging)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Error().Err(err).Str("dir", staging).Msg("read staging dir")
		}
		return
	}
	if len(entries) == 0 {
		os.Remove(staging)
		return
	}

	log.Info().Int("items", len(entries)).Str("dir", staging).Msg("applying staged update")
	for _, e := range entries {
		move(filepath.Join(staging, e.Name()), filepath.Join(root, e.Name()), log)
	}
	if err := os.Remove(staging); err != nil {
		log.Warn().Err(err).Str("dir", staging).Msg("staging dir not removed")
	} else {
		log.Info().Msg("update applied")
	}
}

// move overwrites target with source. Directories are merged entry by entry,
// files are renamed over the destination.
func move(source, target string, log zerolog.Logger) {
	info, err := os.Stat(source)
	if err != nil {
		log.Warn().Err(err).Str("path", source).Msg("stat staged item")
		return
	}

	if info.IsDir() {
		if err := os.MkdirAll(target, 0o755); err != nil {
			log.Warn().Err(err).Str("path", target).Msg("create target dir")
			return
		}
		entries, err := os.ReadDir(source)
		if err != nil {
			log.Warn().Err(err).Str("path", source).Msg("read staged dir")
			return
		}
		for _, e := range entries {
			move(filepath.Join(source, e.Name()), filepath.Join(target, e.Name()), log)
		}
		if err := os.Remove(source); err != nil {
			log.Warn().Err(err).Str("path", source).Msg("staged dir not removed")
		}
		return
	}

	if err := os.Rename(source, target); err != nil {
		log.Warn().Err(err).Str("path", target).Msg("staged file not moved")
		return
	}
	log.Debug().Str("path", target).Msg("file updated")
}
