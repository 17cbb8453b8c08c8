// Package background turns a background descriptor into a decoded image.
package background

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"net"
	"net/http"
	"net/url"
	"os"
	"syscall"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ds124wfegd/newscover/internal/entity"
	"github.com/ds124wfegd/newscover/internal/pkg/assets"
	"github.com/ds124wfegd/newscover/internal/pkg/storage"

	_ "golang.org/x/image/webp"
)

const (
	DefaultFetchTimeout = 10 * time.Second
	maxRedirects        = 10
)

const (
	msgBlankNotFound  = "Blank background not found"
	msgDownloadFailed = "Failed to download image from URL"
	msgCacheFailed    = "Failed to read downloaded image"
	msgDecodeFailed   = "Failed to decode background image"
)

type Resolver interface {
	Resolve(ctx context.Context, bg entity.Background) (image.Image, error)
}

type resolver struct {
	assets       assets.Store
	cache        storage.FileStorage
	client       *http.Client
	blockPrivate bool
}

// NewResolver builds a resolver that stages remote downloads in cache.
// With blockPrivate set, loopback, private and link-local addresses are
// refused: for the requested URL, for every redirect target and for the
// address each connection actually dials.
func NewResolver(store assets.Store, cache storage.FileStorage, timeout time.Duration, blockPrivate bool) Resolver {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	r := &resolver{
		assets:       store,
		cache:        cache,
		blockPrivate: blockPrivate,
	}
	r.client = &http.Client{
		Timeout:       timeout,
		Transport:     newTransport(blockPrivate),
		CheckRedirect: r.checkRedirect,
	}
	return r
}

func newTransport(blockPrivate bool) *http.Transport {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !blockPrivate {
		return transport
	}
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
		Control:   dialControl,
	}
	transport.DialContext = dialer.DialContext
	// a proxy would be the dialed address instead of the target
	transport.Proxy = nil
	return transport
}

// dialControl refuses connections to restricted addresses after DNS
// resolution, so a host that resolves differently at dial time is caught.
func dialControl(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return fmt.Errorf("dial to non-IP address %q", host)
	}
	return checkIP(ip)
}

func (r *resolver) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("stopped after %d redirects", maxRedirects)
	}
	return r.checkURL(req.URL.String())
}

func (r *resolver) Resolve(ctx context.Context, bg entity.Background) (image.Image, error) {
	switch bg.Kind {
	case entity.BackgroundLocal:
		return r.local(bg.Value)
	case entity.BackgroundBlank:
		return r.blank()
	case entity.BackgroundRemote:
		return r.remote(ctx, bg.Value)
	default:
		return nil, entity.NewError(entity.KindInvalidBackground, "Invalid bg parameter", nil)
	}
}

func (r *resolver) local(path string) (image.Image, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, entity.NewError(entity.KindNotFound, "Background not found: "+path, err)
	}
	img, err := imaging.Open(path)
	if err != nil {
		return nil, entity.NewError(entity.KindUnexpected, msgDecodeFailed, err)
	}
	return img, nil
}

func (r *resolver) blank() (image.Image, error) {
	img, err := r.assets.Blank()
	if err != nil {
		return nil, entity.NewError(entity.KindAssetNotFound, msgBlankNotFound, err)
	}
	return img, nil
}

// remote downloads rawURL into a scratch file of its own, decodes it from
// that exact path and removes it. Nothing is written when the server
// answers with anything but 200.
func (r *resolver) remote(ctx context.Context, rawURL string) (image.Image, error) {
	log := logrus.WithField("url", rawURL)

	if err := r.checkURL(rawURL); err != nil {
		log.WithError(err).Warn("remote background rejected")
		return nil, entity.NewError(entity.KindNetwork, msgDownloadFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, entity.NewError(entity.KindNetwork, msgDownloadFailed, err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		log.WithError(err).Error("remote background download failed")
		return nil, entity.NewError(entity.KindNetwork, msgDownloadFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.WithField("status", resp.StatusCode).Warn("remote background bad response")
		return nil, entity.NewError(entity.KindBadStatus, fmt.Sprintf("Bad response: %d", resp.StatusCode), nil)
	}

	name := uuid.New().String() + ".png"
	if err := r.cache.Save(name, resp.Body); err != nil {
		log.WithError(err).Error("failed to stage download")
		return nil, entity.NewError(entity.KindCache, msgCacheFailed, err)
	}
	defer func() {
		if err := r.cache.Delete(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.WithError(err).Warn("failed to remove staged download")
		}
	}()

	return r.decodeStaged(name)
}

func (r *resolver) decodeStaged(name string) (image.Image, error) {
	f, err := r.cache.Get(name)
	if err != nil {
		return nil, entity.NewError(entity.KindCache, msgCacheFailed, err)
	}
	defer f.Close()

	img, err := imaging.Decode(f)
	if err != nil {
		return nil, entity.NewError(entity.KindUnexpected, msgDecodeFailed, err)
	}
	return img, nil
}

func (r *resolver) checkURL(rawURL string) error {
	u, err := url.ParseRequestURI(rawURL)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Hostname() == "" {
		return errors.New("missing host")
	}
	if !r.blockPrivate {
		return nil
	}
	return checkPublicHost(u.Hostname())
}

// checkPublicHost fails when host is or resolves to an address that is
// not routable from the public internet.
func checkPublicHost(host string) error {
	var ips []net.IP
	if ip := net.ParseIP(host); ip != nil {
		ips = []net.IP{ip}
	} else {
		resolved, err := net.LookupIP(host)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", host, err)
		}
		ips = resolved
	}
	if len(ips) == 0 {
		return fmt.Errorf("no addresses for %s", host)
	}
	for _, ip := range ips {
		if err := checkIP(ip); err != nil {
			return err
		}
	}
	return nil
}

func checkIP(ip net.IP) error {
	if ip.IsPrivate() || ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsUnspecified() {
		return fmt.Errorf("restricted address %s", ip)
	}
	return nil
}
