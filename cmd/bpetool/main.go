// bpetool encodes and decodes text against a named reference encoding.
//
// Usage:
//
//	bpetool list
//	bpetool encode -encoding cl100k_base [-allow "<|endoftext|>"] [-all] <text>
//	bpetool decode -encoding cl100k_base <id> [<id> ...]
//	bpetool count  -encoding cl100k_base <text>
//
// Rank files are fetched on first use and cached under $BPEKIT_CACHE (or the
// user cache directory).
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/bpekit/bpekit/bpe"
	"github.com/bpekit/bpekit/encodings"
)

var (
	styleID      = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	styleToken   = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))
	styleHeading = lipgloss.NewStyle().Bold(true)
	styleErr     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	cmd, args := os.Args[1], os.Args[2:]

	var err error
	switch cmd {
	case "list":
		err = runList()
	case "encode":
		err = runEncode(args)
	case "decode":
		err = runDecode(args)
	case "count":
		err = runCount(args)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, styleErr.Render("error: ")+err.Error())
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: bpetool <list|encode|decode|count> [flags] <args>")
}

func runList() error {
	fmt.Println(styleHeading.Render("available encodings"))
	for _, name := range encodings.Names() {
		def, _ := encodings.Get(name)
		specials := make([]string, 0, len(def.SpecialTokens))
		for s := range def.SpecialTokens {
			specials = append(specials, s)
		}
		fmt.Printf("  %s  specials: %s\n", styleToken.Render(name), strings.Join(specials, " "))
	}
	return nil
}

func runEncode(args []string) error {
	fs := flag.NewFlagSet("encode", flag.ExitOnError)
	encName := fs.String("encoding", "cl100k_base", "encoding name")
	allowList := fs.String("allow", "", "comma-separated special tokens to allow")
	allowAll := fs.Bool("all", false, "allow every registered special token")
	fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("encode wants exactly one text argument")
	}

	codec, err := encodings.Load(*encName)
	if err != nil {
		return err
	}

	allowed := bpe.AllowSet{}
	if *allowAll {
		allowed = bpe.AllowAll
	} else if *allowList != "" {
		allowed = bpe.Allow(strings.Split(*allowList, ",")...)
	}

	ids, err := codec.Encode(fs.Arg(0), allowed)
	if err != nil {
		return err
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = styleID.Render(strconv.Itoa(id))
	}
	fmt.Printf("%s (%d tokens)\n", strings.Join(parts, " "), len(ids))
	return nil
}

func runDecode(args []string) error {
	fs := flag.NewFlagSet("decode", flag.ExitOnError)
	encName := fs.String("encoding", "cl100k_base", "encoding name")
	fs.Parse(args)
	if fs.NArg() == 0 {
		return fmt.Errorf("decode wants one or more token IDs")
	}

	codec, err := encodings.Load(*encName)
	if err != nil {
		return err
	}

	ids := make([]int, fs.NArg())
	for i, arg := range fs.Args() {
		if ids[i], err = strconv.Atoi(arg); err != nil {
			return fmt.Errorf("token ID %q is not an integer", arg)
		}
	}
	text, err := codec.Decode(ids)
	if err != nil {
		return err
	}
	fmt.Println(styleToken.Render(text))
	return nil
}

func runCount(args []string) error {
	fs := flag.NewFlagSet("count", flag.ExitOnError)
	encName := fs.String("encoding", "cl100k_base", "encoding name")
	fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("count wants exactly one text argument")
	}

	codec, err := encodings.Load(*encName)
	if err != nil {
		return err
	}
	n, err := codec.CountTokens(fs.Arg(0))
	if err != nil {
		return err
	}
	fmt.Println(styleID.Render(strconv.Itoa(n)))
	return nil
}
