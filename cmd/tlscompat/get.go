package main

//
// The get subcommand
//

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	"github.com/apex/log"
	"github.com/gotev/tlscompat/internal/connspec"
	"github.com/gotev/tlscompat/internal/httpclient"
	"github.com/gotev/tlscompat/internal/model"
	"github.com/gotev/tlscompat/internal/platform"
	"github.com/gotev/tlscompat/internal/tlscompat"
	"github.com/spf13/cobra"
)

// errUnknownFallback indicates an unknown --fallback value.
var errUnknownFallback = errors.New("unknown fallback connection spec")

// errNoCertificates indicates a --ca-file without certificates.
var errNoCertificates = errors.New("no certificates found")

// getOptions contains the options of the get subcommand.
type getOptions struct {
	caFile          string
	connectTimeout  time.Duration
	fallbacks       []string
	logger          model.Logger
	patch           bool
	platformVersion int
	proxy           string
	readTimeout     time.Duration
	writeTimeout    time.Duration
}

func getSubcommand() *cobra.Command {
	options := &getOptions{logger: log.Log}
	cmd := &cobra.Command{
		Use:   "get URL",
		Short: "Fetches a URL using an emulated platform",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return options.run(cmd.Context(), os.Stdout, args[0])
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&options.caFile, "ca-file", "", "PEM file replacing the platform trust store")
	flags.DurationVar(&options.connectTimeout, "connect-timeout", 10*time.Second, "timeout for connecting")
	flags.StringSliceVar(&options.fallbacks, "fallback", nil, "fallback connection spec: compatible or cleartext")
	flags.BoolVar(&options.patch, "patch", false, "apply the TLSv1.2 compatibility patch")
	flags.IntVar(&options.platformVersion, "platform-version", platform.VersionKitKat, "emulated platform version")
	flags.StringVar(&options.proxy, "proxy", "", "SOCKS5 proxy URL (e.g., socks5://127.0.0.1:9050)")
	flags.DurationVar(&options.readTimeout, "read-timeout", 10*time.Second, "timeout for each read")
	flags.DurationVar(&options.writeTimeout, "write-timeout", 10*time.Second, "timeout for each write")
	return cmd
}

// parseFallbacks maps --fallback values to connection specs.
func parseFallbacks(values []string) ([]connspec.ConnectionSpec, error) {
	var specs []connspec.ConnectionSpec
	for _, value := range values {
		switch value {
		case "compatible":
			specs = append(specs, connspec.CompatibleTLS)
		case "cleartext":
			specs = append(specs, connspec.Cleartext)
		default:
			return nil, fmt.Errorf("%w: %s", errUnknownFallback, value)
		}
	}
	return specs, nil
}

// loadCertPool loads a cert pool from the given PEM file.
func loadCertPool(path string) (*x509.CertPool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(data) {
		return nil, fmt.Errorf("%w: %s", errNoCertificates, path)
	}
	return pool, nil
}

// newBuilder creates the client builder for the given platform.
func (o *getOptions) newBuilder(p *platform.Emulated) (*httpclient.Builder, error) {
	fallbacks, err := parseFallbacks(o.fallbacks)
	if err != nil {
		return nil, err
	}
	factory, err := p.DefaultSocketFactory()
	if err != nil {
		return nil, err
	}
	builder := httpclient.NewBuilder().
		ConnectTimeout(o.connectTimeout).
		ReadTimeout(o.readTimeout).
		WriteTimeout(o.writeTimeout).
		Logger(o.logger).
		SecureSocketFactory(factory, nil)
	if o.proxy != "" {
		proxyURL, err := url.Parse(o.proxy)
		if err != nil {
			return nil, err
		}
		builder.Proxy(proxyURL)
	}
	if len(fallbacks) > 0 {
		// same specs the patch would use, so we only compare the factories
		builder.ConnectionSpecs(tlscompat.ConnectionSpecs(fallbacks...)...)
	}
	if o.patch {
		builder = tlscompat.Patch(o.logger, p, builder, fallbacks...)
	}
	return builder, nil
}

// run fetches URL and copies the response body to w.
func (o *getOptions) run(ctx context.Context, w io.Writer, URL string) error {
	p := platform.New(o.platformVersion)
	if o.caFile != "" {
		pool, err := loadCertPool(o.caFile)
		if err != nil {
			return err
		}
		p.TrustStore = pool
	}
	builder, err := o.newBuilder(p)
	if err != nil {
		return err
	}
	client, err := builder.Build()
	if err != nil {
		return err
	}
	defer client.CloseIdleConnections()
	o.logger.Infof("GET %s {platform=%d patch=%v specs=%v}", URL, o.platformVersion, o.patch, client.ConnectionSpecs())
	resp, err := client.Get(ctx, URL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	o.logger.Infof("%s %s", resp.Proto, resp.Status)
	_, err = io.Copy(w, resp.Body)
	return err
}
