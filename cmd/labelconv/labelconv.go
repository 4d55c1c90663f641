package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/labelconv/pkg/convert"
	"github.com/cyclopcam/labelconv/pkg/export"
	"github.com/cyclopcam/labelconv/pkg/labelconfig"
	"github.com/cyclopcam/labelconv/pkg/media"
	"github.com/cyclopcam/labelconv/pkg/task"
	"github.com/cyclopcam/labelconv/pkg/taskstore"
	"github.com/cyclopcam/logs"
)

func check(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func main() {
	logger, err := logs.NewLog()
	check(err)

	parser := argparse.NewParser("labelconv", "Convert labeling tasks into training dataset formats")
	configFile := parser.String("c", "config", &argparse.Options{Help: "Labeling config XML file", Required: true})
	input := parser.String("i", "input", &argparse.Options{Help: "Tasks JSON file, or directory of JSON files"})
	outDir := parser.String("o", "output", &argparse.Options{Help: "Output directory", Default: "."})
	format := parser.String("f", "format", &argparse.Options{Help: "Output format (see --formats)", Default: string(export.FormatJSONMin)})
	listFormats := parser.Flag("", "formats", &argparse.Options{Help: "List the formats that suit the config, and exit"})
	dbFile := parser.String("", "db", &argparse.Options{Help: "Task database (sqlite). Input tasks are imported into it, and then all of the project's tasks are converted"})
	project := parser.String("", "project", &argparse.Options{Help: "Project name inside the task database", Default: "default"})
	imageDir := parser.String("", "image-dir", &argparse.Options{Help: "Where *_WITH_IMAGES formats put images (default <output>/images)"})
	skipMissing := parser.Flag("", "skip-missing-media", &argparse.Options{Help: "Skip tasks whose media can't be found, instead of failing"})
	interpolate := parser.Flag("", "interpolate", &argparse.Options{Help: "Expand video keyframes into one entry per frame"})
	token := parser.String("", "token", &argparse.Options{Help: "API token for downloading media from the labeling server (default $LABELCONV_TOKEN)"})
	host := parser.String("", "host", &argparse.Options{Help: "Labeling server URL, for /data/ references (eg http://localhost:8080)"})
	localFilesRoot := parser.String("", "local-files-root", &argparse.Options{Help: "Root directory of local file references"})
	uploadDir := parser.String("", "upload-dir", &argparse.Options{Help: "Directory of uploaded media"})
	previewDir := parser.String("", "preview", &argparse.Options{Help: "Also draw the annotations over each image, into this directory"})
	err = parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	config, err := os.ReadFile(*configFile)
	check(err)

	if *listFormats {
		cfg, err := labelconfig.Parse(string(config), logger)
		check(err)
		for _, f := range convert.SupportedFormats(cfg) {
			fmt.Printf("%v\n", f)
		}
		return
	}

	if *input == "" && *dbFile == "" {
		fmt.Print(parser.Usage("Either --input or --db is required"))
		os.Exit(1)
	}

	if *token == "" {
		*token = os.Getenv("LABELCONV_TOKEN")
	}

	resolver, err := media.NewResolver(logger, media.Config{
		LocalFilesRoot: *localFilesRoot,
		UploadDir:      *uploadDir,
	})
	check(err)
	defer resolver.Close()

	registry, err := convert.NewRegistry()
	check(err)
	converter := convert.NewConverter(logger, registry, resolver)

	var tasks []task.Task
	if *input != "" {
		tasks, err = task.Load(*input)
		check(err)
	}
	if *dbFile != "" {
		store, err := taskstore.OpenSqlite(logger, *dbFile)
		check(err)
		if len(tasks) != 0 {
			_, err = store.Import(*project, tasks)
			check(err)
		}
		tasks, err = store.All(*project)
		check(err)
		store.Close()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	options := export.Options{
		Token:            *token,
		Hostname:         *host,
		ImageDir:         *imageDir,
		SkipMissingMedia: *skipMissing,
		Interpolate:      *interpolate,
	}
	err = converter.Convert(ctx, string(config), tasks, export.Format(*format), *outDir, options)
	check(err)
	logger.Infof("Wrote %v to %v", *format, *outDir)

	if *previewDir != "" {
		_, err = converter.Preview(ctx, string(config), tasks, *previewDir, options)
		check(err)
	}
}
