package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/logrusorgru/aurora"
	"github.com/sirupsen/logrus"

	selene "github.com/selene-lang/selene"
)

func dispatchSubcommand(args []string) (bool, int) {
	if len(args) == 0 {
		return false, 0
	}
	switch args[0] {
	case "inspect":
		return true, cmdInspect(args[1:])
	case "verify":
		return true, cmdVerify(args[1:])
	case "--version":
		fmt.Println(selene.PackageCopyRight)
		return true, 0
	case "--help", "-h", "help":
		printRootUsage()
		return true, 0
	}
	return false, 0
}

func printRootUsage() {
	fmt.Print(`Usage:
  selene <subcommand> [flags] <input.slbc>

Subcommands:
  inspect   disassemble a .slbc bytecode artifact
  verify    verify a .slbc artifact's container integrity

Global:
  --version print version
  --help    print this help
`)
}

func cmdInspect(args []string) int {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var interactive, verbose, noColor bool
	fs.BoolVar(&interactive, "i", false, "open an interactive inspect shell")
	fs.BoolVar(&verbose, "verbose", false, "log inspect stages")
	fs.BoolVar(&noColor, "no-color", false, "disable colored output")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: selene inspect [-i] [--verbose] [--no-color] <input.slbc>")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 1
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "inspect requires exactly one input .slbc file")
		fs.Usage()
		return 1
	}
	if verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	proto, err := loadArtifact(fs.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return 1
	}

	au := aurora.NewAurora(!noColor)
	if interactive {
		return inspectShell(proto, au)
	}
	printDump(proto, au)
	return 0
}

func cmdVerify(args []string) int {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: selene verify <input.slbc>")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 1
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "verify requires exactly one input .slbc file")
		fs.Usage()
		return 1
	}

	proto, err := loadArtifact(fs.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return 1
	}
	fmt.Printf("%s: ok (%d function(s))\n", fs.Arg(0), countProtos(proto))
	return 0
}

func loadArtifact(path string) (*selene.Proto, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	logrus.Debugf("read %d bytes from %s", len(data), path)
	if !selene.IsBytecode(data) {
		return nil, fmt.Errorf("%s: not a selene bytecode artifact", path)
	}
	proto, err := selene.DecodeProto(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", path, err)
	}
	logrus.Debugf("decoded prototype tree: %d function(s)", countProtos(proto))
	return proto, nil
}

func countProtos(p *selene.Proto) int {
	n := 1
	for _, child := range p.Protos {
		n += countProtos(child)
	}
	return n
}

func printDump(proto *selene.Proto, au aurora.Aurora) {
	for _, line := range strings.Split(strings.TrimRight(proto.Dump(), "\n"), "\n") {
		trimmed := strings.TrimLeft(line, " ")
		switch {
		case strings.HasPrefix(trimmed, "function"):
			fmt.Println(au.Cyan(line))
		case strings.HasPrefix(trimmed, "const"), strings.HasPrefix(trimmed, "upvalue"):
			fmt.Println(au.Yellow(line))
		case strings.HasPrefix(trimmed, "local"):
			fmt.Println(au.Green(line))
		default:
			fmt.Println(line)
		}
	}
}
