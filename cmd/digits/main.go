// Command digits trains the digit recognizer and recognizes drawings with it.
//
//	digits [-config digits.toml] train [-stats epochs.csv] [-plot mse.png]
//	digits [-config digits.toml] recognize [-v] [-gif out.gif] [-serve :8080] [image ...]
//	digits [-config digits.toml] eval
//	digits [-config digits.toml] dot [-k 5]
//
// recognize reads image paths from stdin, one per line, when none are given.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"

	"github.com/gorgonia/digits"
	"github.com/gorgonia/digits/dataset"
	"github.com/gorgonia/digits/encoding/gif"
	"github.com/gorgonia/digits/encoding/mjpeg"
	"github.com/gorgonia/digits/normalize"
	"github.com/pkg/errors"
)

var (
	configFile = flag.String("config", "", "TOML configuration file. The 10×10 defaults are used when empty")
	quiet      = flag.Bool("q", false, "only log errors")
)

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] train|recognize|eval|dot [args]\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	logger := log.New(os.Stderr, "", log.Ltime)
	if *quiet {
		logger.SetOutput(io.Discard)
	}

	conf := digits.DefaultConfig()
	if *configFile != "" {
		var err error
		if conf, err = digits.LoadConfig(*configFile); err != nil {
			log.Fatal(err)
		}
	}
	conf.Logger = logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var err error
	cmd, args := flag.Arg(0), flag.Args()[1:]
	switch cmd {
	case "train":
		err = trainCmd(ctx, conf, args)
	case "recognize":
		err = recognizeCmd(ctx, conf, args)
	case "eval":
		err = evalCmd(ctx, conf, args)
	case "dot":
		err = dotCmd(ctx, conf, args)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%s: %+v", cmd, err)
	}
}

// sets opens the configured data. Without data an engine can still start from a checkpoint.
func sets(conf digits.Config) (trainSet, testSet dataset.Set) {
	trainSet, testSet, err := conf.Sets()
	if err != nil {
		conf.Logger.Printf("No training data: %v", err)
		return nil, nil
	}
	return trainSet, testSet
}

func start(ctx context.Context, conf digits.Config) (*digits.Engine, error) {
	e, err := digits.New(conf)
	if err != nil {
		return nil, err
	}
	trainSet, testSet := sets(conf)
	if err = e.Start(ctx, trainSet, testSet); err != nil {
		return nil, err
	}
	return e, nil
}

func trainCmd(ctx context.Context, conf digits.Config, args []string) error {
	fs := flag.NewFlagSet("train", flag.ExitOnError)
	stats := fs.String("stats", "", "write per epoch statistics to this CSV file")
	plot := fs.String("plot", "", "plot the MSE per epoch to this image file")
	fs.Parse(args)

	trainSet, testSet := sets(conf)
	if trainSet == nil {
		return errors.New("Cannot train without training data")
	}
	e, err := digits.New(conf)
	if err != nil {
		return err
	}
	if err = e.Start(ctx, trainSet, testSet); err != nil {
		return err
	}
	if e.Loaded() {
		if _, err = e.Learn(ctx, trainSet, testSet); err != nil {
			return err
		}
	}
	conf.Logger.Printf("Training finished: %v", e.State())

	if *stats != "" {
		if err = e.Dump(*stats); err != nil {
			return err
		}
	}
	if *plot != "" {
		if err = e.Plot(*plot); err != nil {
			return err
		}
	}
	return nil
}

func recognizeCmd(ctx context.Context, conf digits.Config, args []string) error {
	fs := flag.NewFlagSet("recognize", flag.ExitOnError)
	gifFile := fs.String("gif", "", "write an animation of the recognitions to this file")
	verbose := fs.Bool("v", false, "print the normalized grid of every image")
	serve := fs.String("serve", "", "serve recognitions on this address: websocket JSON on /ws and motion JPEG on /mjpeg")
	fs.Parse(args)

	var outs outputs
	if *gifFile != "" {
		f, err := os.Create(*gifFile)
		if err != nil {
			return errors.WithStack(err)
		}
		defer f.Close()
		enc := gif.NewGifEncoder(600, 800)
		enc.Writer = f
		outs = append(outs, enc)
	}
	if *serve != "" {
		ws := NewEncoder()
		mj := mjpeg.NewEncoder(600, 800)
		outs = append(outs, ws, mj)

		mux := http.NewServeMux()
		mux.Handle("/ws", ws)
		mux.Handle("/mjpeg", mj)
		go func() {
			log.Printf("http://%s/mjpeg", *serve)
			if err := http.ListenAndServe(*serve, mux); err != nil {
				log.Println(err)
			}
		}()
	}
	if len(outs) > 0 {
		conf.OutputEncoder = outs
	}

	e, err := start(ctx, conf)
	if err != nil {
		return err
	}

	recognize := func(name string) error {
		img, err := dataset.DecodeFile(name)
		if err != nil {
			return err
		}
		res, err := e.RecognizeImage(img)
		if err != nil {
			return errors.WithMessage(err, name)
		}
		fmt.Printf("%s\t%v\n", name, res)
		if *verbose && !res.Blank() {
			fmt.Print(normalize.Render(res.Grid, conf.Height, conf.Width))
		}
		return nil
	}

	if fs.NArg() > 0 {
		for _, name := range fs.Args() {
			if ctx.Err() != nil {
				break
			}
			if err = recognize(name); err != nil {
				return err
			}
		}
		return e.Close()
	}

	scanner := bufio.NewScanner(os.Stdin)
	for ctx.Err() == nil && scanner.Scan() {
		name := strings.TrimSpace(scanner.Text())
		if name == "" {
			continue
		}
		if err = recognize(name); err != nil {
			log.Println(err)
		}
	}
	if err = scanner.Err(); err != nil {
		return errors.WithStack(err)
	}
	return e.Close()
}

func evalCmd(ctx context.Context, conf digits.Config, args []string) error {
	fs := flag.NewFlagSet("eval", flag.ExitOnError)
	train := fs.Bool("train", false, "evaluate on the training set instead of the test set")
	fs.Parse(args)

	trainSet, testSet := sets(conf)
	e, err := digits.New(conf)
	if err != nil {
		return err
	}
	if err = e.Start(ctx, trainSet, testSet); err != nil {
		return err
	}
	set := testSet
	if *train {
		set = trainSet
	}
	if set == nil {
		return errors.New("No samples to evaluate")
	}
	ev, err := e.Evaluate(set)
	if err != nil {
		return err
	}
	fmt.Println(ev)
	return nil
}

func dotFlags() (*flag.FlagSet, *int) {
	fs := flag.NewFlagSet("dot", flag.ExitOnError)
	k := fs.Int("k", 5, "strongest connections drawn per layer")
	return fs, k
}

func dotCmd(ctx context.Context, conf digits.Config, args []string) error {
	fs, k := dotFlags()
	fs.Parse(args)

	e, err := start(ctx, conf)
	if err != nil {
		return err
	}
	fmt.Println(e.Dot(*k))
	return nil
}
