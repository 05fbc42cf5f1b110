// hevcdepay captures HEVC RTP streams from UDP and reconstructs
// decodable Annex-B bitstreams from the captured packets.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"go.uber.org/zap"
	"gopkg.in/urfave/cli.v1"

	"github.com/vidcap/hevcdepay/internal/capture"
	"github.com/vidcap/hevcdepay/internal/depay"
)

var version = "v0.0.0"

func newLogger(verbose bool) (*zap.SugaredLogger, error) {
	if verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			return nil, err
		}
		return logger.Sugar(), nil
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}

func serveAction(c *cli.Context) error {
	log, err := newLogger(c.GlobalBool("verbose"))
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	conf, err := capture.LoadConfig()
	if err != nil {
		return err
	}

	if c.IsSet("host") {
		conf.Host = c.String("host")
	}
	if c.IsSet("port") {
		conf.Port = c.Int("port")
	}
	if c.IsSet("output-dir") {
		conf.OutputDir = c.String("output-dir")
	}
	if c.IsSet("status-address") {
		conf.StatusAddress = c.String("status-address")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	s := &capture.Service{
		Conf: conf,
		Log:  log,
	}
	return s.Run(ctx)
}

func depayAction(c *cli.Context) error {
	log, err := newLogger(c.GlobalBool("verbose"))
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	input := c.Args().First()
	if input == "" {
		return fmt.Errorf("missing input file")
	}

	return depay.Depacketize(log, input, c.String("output"), c.Bool("overwrite"))
}

func inspectAction(c *cli.Context) error {
	log, err := newLogger(c.GlobalBool("verbose"))
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	input := c.Args().First()
	if input == "" {
		return fmt.Errorf("missing input file")
	}

	return depay.Inspect(log, input)
}

func combineAction(c *cli.Context) error {
	log, err := newLogger(c.GlobalBool("verbose"))
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	dir := c.Args().First()
	if dir == "" {
		return fmt.Errorf("missing input directory")
	}

	return depay.Combine(log, dir, c.String("output"), c.Bool("overwrite"))
}

func main() {
	app := cli.NewApp()
	app.Name = "hevcdepay"
	app.Usage = "capture HEVC RTP streams and rebuild Annex-B bitstreams"
	app.Version = version
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "verbose, v",
			Usage: "enable debug logging",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:   "serve",
			Usage:  "capture UDP datagrams into a cat container",
			Action: serveAction,
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "host",
					Usage: "address to listen on (multicast groups are joined)",
				},
				cli.IntFlag{
					Name:  "port",
					Usage: "port to listen on",
				},
				cli.StringFlag{
					Name:  "output-dir",
					Usage: "directory that hosts capture group directories",
				},
				cli.StringFlag{
					Name:  "status-address",
					Usage: "address of the live status websocket endpoint",
				},
			},
		},
		{
			Name:      "depay",
			Usage:     "depacketize a cat container into a .h265 bitstream",
			ArgsUsage: "input.cat",
			Action:    depayAction,
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "output, o",
					Usage: "output file",
					Value: "output.h265",
				},
				cli.BoolFlag{
					Name:  "overwrite",
					Usage: "overwrite the output file if it exists",
				},
			},
		},
		{
			Name:      "inspect",
			Usage:     "list the records of a cat container",
			ArgsUsage: "input.cat",
			Action:    inspectAction,
		},
		{
			Name:      "combine",
			Usage:     "join the raw NAL dumps of a capture group into a bitstream",
			ArgsUsage: "dir",
			Action:    combineAction,
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "output, o",
					Usage: "output file",
					Value: "o.265",
				},
				cli.BoolFlag{
					Name:  "overwrite",
					Usage: "overwrite the output file if it exists",
				},
			},
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
