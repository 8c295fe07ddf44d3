package main

import (
	"fmt"
	"os"

	"asmlnk/pkg/asmsrc"
	"asmlnk/pkg/config"
	"asmlnk/pkg/utils"
)

const usage = "usage: asm -o <out.o> <in.s>"

func main() {
	utils.Prog = "asm"

	settings, err := config.FromEnv()
	utils.MustNo(err)
	utils.MustNo(settings.Configure())

	var input, output string
	argv := os.Args[1:]
	for i := 0; i < len(argv); i++ {
		switch arg := argv[i]; {
		case arg == "-o" && i+1 < len(argv):
			i++
			output = argv[i]
		case len(arg) > 1 && arg[0] == '-':
			utils.Fatal(fmt.Sprintf("unknown option %s\n%s", arg, usage))
		case input != "":
			utils.Fatal(fmt.Sprintf("more than one input file\n%s", usage))
		default:
			input = arg
		}
	}
	if input == "" || output == "" {
		utils.Fatal(usage)
	}

	utils.MustNo(asmsrc.Assemble(input, output))
}
