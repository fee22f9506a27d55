package main

import (
	"fmt"
	"io"
	"os"

	"github.com/kr/pretty"
	"github.com/xyproto/env/v2"
	cli "gopkg.in/urfave/cli.v1"
)

// debug dumps the intermediate trees of every stage to stdout
var debug = env.Bool("PPLC_DEBUG")

func main() {
	app := cli.NewApp()
	app.Name = "pplc"
	app.Usage = "convert probabilistic core-language programs to continuation passing style"
	app.ArgsUsage = "[file]"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "lift-only",
			Usage: "stop after the application-lifting pass",
		},
		cli.BoolFlag{
			Name:  "eval",
			Usage: "evaluate the program directly and after conversion",
		},
	}
	app.Action = run
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "pplc:", err)
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	var in io.Reader = os.Stdin
	if ctx.NArg() > 0 {
		f, err := os.Open(ctx.Args().First())
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	t, err := parse(in)
	if err != nil {
		return err
	}
	t = resolvePrims(t)
	if err := checkSource(t); err != nil {
		return err
	}
	if debug {
		pretty.Println(t)
	}

	if ctx.Bool("lift-only") {
		g := new(gensym)
		g.prime(t)
		printTerm((&lifter{gen: g}).lift(t))
		return nil
	}

	out := cpsTransform(t)
	if debug {
		pretty.Println(out)
	}
	if err := checkTailCalls(out); err != nil {
		return err
	}
	printTerm(out)

	if ctx.Bool("eval") {
		direct, err := eval(t)
		if err != nil {
			return err
		}
		converted, err := eval(out)
		if err != nil {
			return err
		}
		fmt.Println("direct:   ", formatTerm(direct))
		fmt.Println("converted:", formatTerm(converted))
	}
	return nil
}
