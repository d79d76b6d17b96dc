// Command classdump is a small demonstration CLI over the classfile
// package: it parses a .class file and prints the pieces a caller asks for.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ogclass/classpool/pkg/binio"
	"github.com/ogclass/classpool/pkg/cfg"
	"github.com/ogclass/classpool/pkg/classfile"
)

var (
	showPool    bool
	showMethods bool
	showFields  bool
	showCFG     bool
)

func dumpPool(cf *classfile.ClassFile) {
	for _, idx := range cf.Pool.Indices() {
		fmt.Printf("  #%d = %s\n", idx, cf.Pool.Get(idx))
	}
}

func dumpFields(cf *classfile.ClassFile) {
	for _, f := range cf.Fields {
		fmt.Printf("  %s %s %s\n", accessFlagsString(f.AccessFlags), f.Name, f.Descriptor)
	}
}

func dumpMethods(cf *classfile.ClassFile, withCFG bool) {
	for _, m := range cf.Methods {
		fmt.Printf("  %s %s%s\n", accessFlagsString(m.AccessFlags), m.Name, m.Descriptor)
		if !withCFG || m.Code == nil {
			continue
		}
		g, err := cfg.BuildFromCode(m.Code, cf.Pool)
		if err != nil {
			slog.Warn("building instruction graph", "method", m.Name, "err", err)
			continue
		}
		fmt.Printf("    blocks: %d\n", len(g.Blocks()))
	}
}

func accessFlagsString(flags uint16) string {
	var s string
	if flags&classfile.AccPublic != 0 {
		s += "public "
	}
	if flags&classfile.AccFinal != 0 {
		s += "final "
	}
	if flags&classfile.AccAbstract != 0 {
		s += "abstract "
	}
	return s
}

func dump(cmd *cobra.Command, args []string) error {
	path := args[0]
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	cf, err := classfile.Read(context.Background(), binio.NewReader(f), classfile.Options{})
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	fmt.Printf("%s  (version %d.%d)\n", cf.ClassName(), cf.MajorVersion, cf.MinorVersion)

	if showPool {
		fmt.Println("constant pool:")
		dumpPool(cf)
	}
	if showFields {
		fmt.Println("fields:")
		dumpFields(cf)
	}
	if showMethods {
		fmt.Println("methods:")
		dumpMethods(cf, showCFG)
	}
	return nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "classdump",
		Short: "Inspects the structure of a .class file",
		Long:  "classdump decodes a JVM class file and prints the pieces requested by flag.",
	}

	dumpCmd := &cobra.Command{
		Use:   "dump <file>",
		Short: "Dump a class file's structure",
		Args:  cobra.ExactArgs(1),
		RunE:  dump,
	}
	dumpCmd.Flags().BoolVar(&showPool, "pool", false, "dump the constant pool")
	dumpCmd.Flags().BoolVar(&showFields, "fields", false, "dump field declarations")
	dumpCmd.Flags().BoolVar(&showMethods, "methods", false, "dump method declarations")
	dumpCmd.Flags().BoolVar(&showCFG, "cfg", false, "also build and summarize each method's instruction graph")

	rootCmd.AddCommand(dumpCmd)

	if err := rootCmd.Execute(); err != nil {
		slog.Error("classdump failed", "err", err)
		os.Exit(1)
	}
}
