package main

//
// The providers subcommand
//

import (
	"slices"
	"strings"

	"github.com/apex/log"
	"github.com/gotev/tlscompat/internal/platform"
	"github.com/gotev/tlscompat/internal/runtimex"
	"github.com/gotev/tlscompat/internal/securesocket"
	"github.com/gotev/tlscompat/internal/tlscompat"
	"github.com/spf13/cobra"
)

func providersSubcommand() *cobra.Command {
	var platformVersion int
	cmd := &cobra.Command{
		Use:   "providers",
		Short: "Lists the protocols and cipher suites of an emulated platform",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			describePlatform(log.Log, platform.New(platformVersion))
		},
	}
	cmd.Flags().IntVar(&platformVersion, "platform-version", platform.VersionKitKat, "emulated platform version")
	return cmd
}

// describePlatform logs the protocols and cipher suites of p.
func describePlatform(logger log.Interface, p *platform.Emulated) {
	sc := runtimex.Try1(p.NewSecureContext(securesocket.ProtocolTLS))
	runtimex.Try0(sc.Init(nil))
	factory := runtimex.Try1(sc.SocketFactory())

	logger.WithFields(log.Fields{
		"type":  "section_title",
		"title": "Platform",
	}).Info("")
	socket := runtimex.Try1(factory.CreateSocket())
	defer socket.Close()
	fields := log.Fields{
		"type":      "table",
		"version":   p.Version(),
		"affected":  tlscompat.AffectedRange.Contains(p.Version()),
		"supported": strings.Join(socket.SupportedProtocols(), " "),
		"enabled":   strings.Join(socket.EnabledProtocols(), " "),
	}
	patched, err := tlscompat.NewProtocolEnablingSocketFactory(factory, tlscompat.TargetProtocol).CreateSocket()
	if err != nil {
		fields["patched"] = err.Error()
	} else {
		defer patched.Close()
		fields["patched"] = strings.Join(patched.EnabledProtocols(), " ")
	}
	logger.WithFields(fields).Info("")

	logger.WithFields(log.Fields{
		"type":  "section_title",
		"title": "Cipher suites",
	}).Info("")
	defaults := factory.DefaultCipherSuites()
	for _, name := range factory.SupportedCipherSuites() {
		logger.WithFields(log.Fields{
			"default": slices.Contains(defaults, name),
		}).Info(name)
	}
}
