package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"asmlnk/pkg/config"
	"asmlnk/pkg/image"
	"asmlnk/pkg/linker"
	"asmlnk/pkg/utils"
)

const usage = "usage: lnk -o <out> [-place=<section>@<address>]... [-script=<file.yaml>] -hex <in.o>..."

func main() {
	utils.Prog = "lnk"

	settings, err := config.FromEnv()
	utils.MustNo(err)
	utils.MustNo(settings.Configure())

	ctx := linker.NewContext()
	args, err := parseArgs(os.Args[1:])
	if err != nil {
		utils.Fatal(fmt.Sprintf("%s\n%s", err, usage))
	}

	if args.script != "" {
		script, err := config.LoadScript(args.script)
		utils.MustNo(err)
		utils.MustNo(script.Apply(&args.ContextArgs))
	}
	if args.Output != "" {
		ctx.Args.Output = args.Output
	}
	ctx.Args.Placements = args.Placements
	ctx.Args.Inputs = args.Inputs

	segments, err := linker.PerformLinking(ctx)
	utils.MustNo(err)
	if !image.Contains(segments, settings.ResetVector) {
		log.WithField("reset_vector", fmt.Sprintf("%#x", settings.ResetVector)).
			Warn("image does not cover the reset vector")
	}
	utils.MustNo(image.WriteFile(ctx.Args.Output, segments))
}

type cliArgs struct {
	linker.ContextArgs
	script string
}

func parseArgs(argv []string) (cliArgs, error) {
	var args cliArgs
	hex := false

	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		if arg == "-o" {
			if i+1 >= len(argv) {
				return args, fmt.Errorf("-o needs a file name")
			}
			i++
			args.Output = argv[i]
		} else if rest, ok := utils.RemovePrefix(arg, "-place="); ok {
			p, err := config.ParsePlacement(rest)
			if err != nil {
				return args, err
			}
			args.Placements = append(args.Placements, p)
		} else if rest, ok := utils.RemovePrefix(arg, "-script="); ok {
			args.script = rest
		} else if arg == "-hex" {
			hex = true
		} else if len(arg) > 1 && arg[0] == '-' {
			return args, fmt.Errorf("unknown option %s", arg)
		} else {
			args.Inputs = append(args.Inputs, arg)
		}
	}

	if !hex {
		return args, fmt.Errorf("only -hex output is supported and it must be requested")
	}
	if args.Output == "" && args.script == "" {
		return args, fmt.Errorf("no output file")
	}
	return args, nil
}
