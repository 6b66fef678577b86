package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/doyensec/safeurl"
	"github.com/spf13/viper"
)

var ErrImageURLFailed = errors.New("couldn't fetch the image from that URL")

// imageFetchClient blocks private, loopback and link-local addresses at
// the dialer level, so a crafted image_url can't be used to probe the
// internal network
var imageFetchClient = safeurl.Client(
	safeurl.GetConfigBuilder().
		SetTimeout(15 * time.Second).
		SetAllowedSchemes("http", "https").
		SetAllowedPorts(80, 443).
		Build(),
).Client

// FetchImageURL downloads a meal photo from a user supplied URL. The
// caller still has to validate the bytes, this only bounds the transfer
func FetchImageURL(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, ErrImageURLFailed
	}

	res, err := imageFetchClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w, %w", ErrImageURLFailed, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w, got status %s", ErrImageURLFailed, res.Status)
	}

	maxSize := viper.GetInt64("upload.max_size")

	data, err := io.ReadAll(io.LimitReader(res.Body, maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w, %w", ErrImageURLFailed, err)
	}

	if int64(len(data)) > maxSize {
		return nil, errors.New("image behind the URL is too large")
	}

	return data, nil
}
