package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tilegrinder/pmread"
)

var tilesServed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "pmreadd_tiles_served_total",
	Help: "Tiles served, partitioned by outcome.",
}, []string{"outcome"})

func main() {
	var (
		uri      = flag.String("uri", "", "archive URI (path, file:// or s3://bucket/key)")
		addr     = flag.String("addr", ":8080", "listen address")
		useCache = flag.Bool("cache", true, "cache decoded directories")
	)
	flag.Parse()

	if *uri == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var options []pmread.Option
	if *useCache {
		options = append(options, pmread.WithDirectoryCache())
	}

	reader, err := pmread.Open(ctx, *uri, options...)
	if err != nil {
		log.Fatalf("opening archive %s: %v", *uri, err)
	}
	defer reader.Close() //nolint:errcheck

	app := fiber.New(fiber.Config{AppName: "pmreadd"})
	app.Use(logger.New())

	prom := fiberprometheus.New("pmreadd")
	prom.RegisterAt(app, "/metrics")
	app.Use(prom.Middleware)

	app.Get("/header", func(c *fiber.Ctx) error {
		return c.JSON(reader.Header())
	})

	app.Get("/metadata", func(c *fiber.Ctx) error {
		return c.JSON(reader.Metadata())
	})

	header := reader.Header()
	app.Get("/tiles/:z/:x/:y", func(c *fiber.Ctx) error {
		z, x, y, err := parseTilePath(c)
		if err != nil {
			tilesServed.WithLabelValues("bad_request").Inc()
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		data, err := reader.Tile(c.UserContext(), z, x, y)
		if err != nil {
			if errors.Is(err, pmread.ErrInvalidTileID) {
				tilesServed.WithLabelValues("bad_request").Inc()
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			tilesServed.WithLabelValues("error").Inc()
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		if data == nil {
			tilesServed.WithLabelValues("not_found").Inc()
			return c.SendStatus(fiber.StatusNoContent)
		}

		tilesServed.WithLabelValues("ok").Inc()
		c.Set(fiber.HeaderContentType, header.TileType.ContentType())
		if header.TileCompression == pmread.CompressionGZIP {
			c.Set(fiber.HeaderContentEncoding, "gzip")
		}
		return c.Send(data)
	})

	go func() {
		<-ctx.Done()
		_ = app.Shutdown() //nolint:errcheck
	}()

	if err := app.Listen(*addr); err != nil {
		log.Fatalf("serving on %s: %v", *addr, err)
	}
}

func parseTilePath(c *fiber.Ctx) (z, x, y uint64, err error) {
	z, err = strconv.ParseUint(c.Params("z"), 10, 64)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid z %q", c.Params("z"))
	}
	x, err = strconv.ParseUint(c.Params("x"), 10, 64)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid x %q", c.Params("x"))
	}
	y, err = strconv.ParseUint(c.Params("y"), 10, 64)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid y %q", c.Params("y"))
	}
	return z, x, y, nil
}
