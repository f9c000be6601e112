package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	chunkAlignBytes    = 256 * kibibyte // upload protocol granularity
	maxChunkBytes      = 256 * mebibyte
	minParallelUploads = 1
	maxParallelUploads = 16
	minConnectTimeout  = 1 * time.Second
	minTrailerTimeout  = 10 * time.Second
)

var (
	validPrivacy    = []string{"public", "private", "unlisted"}
	validLogLevels  = []string{"debug", "info", "warn", "error"}
	validLogFormats = []string{"auto", "text", "json"}
)

// Validate checks every value and reports all problems at once.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateUpload(&cfg.Upload)...)
	errs = append(errs, validateTrailer(&cfg.Trailer)...)
	errs = append(errs, validateLogging(&cfg.Logging)...)
	errs = append(errs, validateWatch(&cfg.Watch)...)

	if cfg.Server.ListenAddr == "" {
		errs = append(errs, errors.New("server.listen_addr: must not be empty"))
	}

	return errors.Join(errs...)
}

func validateUpload(u *UploadConfig) []error {
	var errs []error

	errs = append(errs, validateChunkSize(u.ChunkSize)...)

	if u.ParallelUploads < minParallelUploads || u.ParallelUploads > maxParallelUploads {
		errs = append(errs, fmt.Errorf("upload.parallel_uploads: must be between %d and %d, got %d",
			minParallelUploads, maxParallelUploads, u.ParallelUploads))
	}

	if _, err := ParseRate(u.BandwidthLimit); err != nil {
		errs = append(errs, fmt.Errorf("upload.bandwidth_limit: %w", err))
	}

	if !oneOf(strings.ToLower(u.DefaultPrivacy), validPrivacy) {
		errs = append(errs, fmt.Errorf("upload.default_privacy: must be one of %s, got %q",
			strings.Join(validPrivacy, ", "), u.DefaultPrivacy))
	}

	errs = append(errs, validateDurationMin("upload.connect_timeout", u.ConnectTimeout, minConnectTimeout)...)

	return errs
}

func validateChunkSize(s string) []error {
	n, err := ParseSize(s)
	if err != nil {
		return []error{fmt.Errorf("upload.chunk_size: %w", err)}
	}

	if n <= 0 || n > maxChunkBytes {
		return []error{fmt.Errorf("upload.chunk_size: must be between 256KiB and 256MiB, got %s", s)}
	}

	if n%chunkAlignBytes != 0 {
		return []error{fmt.Errorf("upload.chunk_size: must be a multiple of 256 KiB (%d bytes), got %s (%d bytes)",
			chunkAlignBytes, s, n)}
	}

	return nil
}

func validateTrailer(t *TrailerConfig) []error {
	var errs []error

	if t.APIURL != "" {
		u, err := url.Parse(t.APIURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("trailer.api_url: must be an absolute http(s) URL, got %q", t.APIURL))
		}
	}

	errs = append(errs, validateDurationMin("trailer.timeout", t.Timeout, minTrailerTimeout)...)

	return errs
}

func validateLogging(l *LoggingConfig) []error {
	var errs []error

	if !oneOf(l.LogLevel, validLogLevels) {
		errs = append(errs, fmt.Errorf("logging.log_level: must be one of %s, got %q",
			strings.Join(validLogLevels, ", "), l.LogLevel))
	}

	if !oneOf(l.LogFormat, validLogFormats) {
		errs = append(errs, fmt.Errorf("logging.log_format: must be one of %s, got %q",
			strings.Join(validLogFormats, ", "), l.LogFormat))
	}

	return errs
}

func validateWatch(w *WatchConfig) []error {
	var errs []error

	for _, ext := range w.Extensions {
		if !strings.HasPrefix(ext, ".") {
			errs = append(errs, fmt.Errorf("watch.extensions: %q must start with a dot", ext))
		}
	}

	if _, err := time.ParseDuration(w.Settle); err != nil {
		errs = append(errs, fmt.Errorf("watch.settle: %w", err))
	}

	return errs
}

func validateDurationMin(field, value string, minDur time.Duration) []error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return []error{fmt.Errorf("%s: invalid duration %q: %w", field, value, err)}
	}

	if d < minDur {
		return []error{fmt.Errorf("%s: must be at least %s, got %s", field, minDur, value)}
	}

	return nil
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}

	return false
}
