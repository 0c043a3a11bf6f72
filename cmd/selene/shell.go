package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/logrusorgru/aurora"

	selene "github.com/selene-lang/selene"
)

const shellHelp = `Commands:
  fns            list functions with their tree paths
  dis [path]     disassemble the function at path (default: root)
  consts [path]  list the constant pool at path
  upvals [path]  list the upvalue descriptors at path
  locals [path]  list the local debug ranges at path
  help           print this help
  exit           leave the shell

A path is a dot-separated child index chain, e.g. 0.1 is the second
child of the root's first child.`

func inspectShell(root *selene.Proto, au aurora.Aurora) int {
	rl, err := readline.New("selene> ")
	if err != nil {
		fmt.Println(err.Error())
		return 1
	}
	defer rl.Close()

	fmt.Printf("inspecting %q: %d function(s), type help for commands\n",
		root.Source, countProtos(root))
	for {
		line, err := rl.Readline()
		if err != nil {
			return 0
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		path := ""
		if len(fields) > 1 {
			path = fields[1]
		}

		switch fields[0] {
		case "exit", "quit":
			return 0
		case "help":
			fmt.Println(shellHelp)
		case "fns":
			printTree(root, "", au)
		case "dis", "consts", "upvals", "locals":
			p, err := findProto(root, path)
			if err != nil {
				fmt.Println(err.Error())
				continue
			}
			printSection(fields[0], p, au)
		default:
			fmt.Printf("unknown command %q, type help\n", fields[0])
		}
	}
}

func printTree(p *selene.Proto, path string, au aurora.Aurora) {
	label := path
	if label == "" {
		label = "(root)"
	}
	fmt.Printf("%s line=%d params=%d upvalues=%d\n",
		au.Cyan(label), p.LineDefined, p.NumParameters, len(p.Upvalues))
	for i, child := range p.Protos {
		childPath := strconv.Itoa(i)
		if path != "" {
			childPath = path + "." + childPath
		}
		printTree(child, childPath, au)
	}
}

func printSection(section string, p *selene.Proto, au aurora.Aurora) {
	switch section {
	case "dis":
		for pc, inst := range p.Code {
			fmt.Printf("  [%03d] %s ; line %d\n", pc+1, inst, p.Lines[pc])
		}
	case "consts":
		for i, c := range p.Constants {
			fmt.Printf("  %d: %s %s\n", i, au.Yellow(c.Type().String()), c.String())
		}
	case "upvals":
		for i, uv := range p.Upvalues {
			where := "upvalue"
			if uv.ParentLocal {
				where = "register"
			}
			fmt.Printf("  %d: %q from parent %s %d\n", i, uv.Name, where, uv.Index)
		}
	case "locals":
		for _, lv := range p.LocalVars {
			fmt.Printf("  %q reg=%d pc=[%d,%d)\n", lv.Name, lv.Reg, lv.StartPC, lv.EndPC)
		}
	}
}

// findProto resolves a dot-separated child index chain from root.
func findProto(root *selene.Proto, path string) (*selene.Proto, error) {
	if path == "" {
		return root, nil
	}
	p := root
	for _, part := range strings.Split(path, ".") {
		index, err := strconv.Atoi(part)
		if err != nil || index < 0 || index >= len(p.Protos) {
			return nil, fmt.Errorf("no function at path %q", path)
		}
		p = p.Protos[index]
	}
	return p, nil
}
