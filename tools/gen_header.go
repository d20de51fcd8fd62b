// Package main generates include/plugin_facade.h, the C header library
// authors compile against, from the factory protocol constants of the
// plugin package so the two cannot drift apart.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/amikos-tech/pure-plugin/plugin"
)

func main() {
	out := flag.String("o", "", "output path (default stdout)")
	flag.Parse()

	w := io.Writer(os.Stdout)
	if *out != "" {
		file, err := os.Create(*out)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create header file: %v\n", err)
			os.Exit(1)
		}
		defer file.Close()
		w = file
	}

	bw := bufio.NewWriter(w)
	generateHeader(bw)
	if err := bw.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write header: %v\n", err)
		os.Exit(1)
	}
}

func generateHeader(w io.Writer) {
	p := func(format string, args ...any) { fmt.Fprintf(w, format+"\n", args...) }

	p("/* Code generated by tools/gen_header.go. DO NOT EDIT. */")
	p("")
	p("#ifndef PLUGIN_FACADE_H")
	p("#define PLUGIN_FACADE_H")
	p("")
	p("#include <stddef.h>")
	p("#include <stdint.h>")
	p("#include <stdlib.h>")
	p("")
	p("#if defined(_WIN32)")
	p("#define PLUGIN_API __declspec(dllexport)")
	p("#else")
	p("#define PLUGIN_API __attribute__((visibility(\"default\")))")
	p("#endif")
	p("")
	p("#ifdef __cplusplus")
	p("extern \"C\" {")
	p("#endif")
	p("")
	p("#define PLUGIN_FACADE_ABI_VERSION %d", plugin.FacadeABIVersion)
	p("#define PLUGIN_FACTORY_CREATE \"%s\"", plugin.CreateSymbol)
	p("#define PLUGIN_FACTORY_DESTROY \"%s\"", plugin.DestroySymbol)
	p("")
	p("struct plugin_version {")
	p("    uint32_t major;")
	p("    uint32_t minor;")
	p("    uint32_t patch;")
	p("    uint32_t build;")
	p("};")
	p("")
	p("/* The loader reads this table through the pointer returned by %s. */", plugin.CreateSymbol)
	p("struct plugin_facade {")
	p("    uint32_t abi_version;")
	p("    const char* (*name)(const struct plugin_facade* self);")
	p("    const struct plugin_version* (*version)(const struct plugin_facade* self);")
	p("};")
	p("")
	p("/* Returns the library's facade, creating it on the first call. */")
	p("PLUGIN_API struct plugin_facade* %s(void);", plugin.CreateSymbol)
	p("")
	p("/* Releases the facade and resets the cache. A no-op without a facade. */")
	p("PLUGIN_API void %s(void);", plugin.DestroySymbol)
	p("")
	p("/*")
	p(" * PLUGIN_FACTORY_DEFINITION(T, INIT) defines both factory functions for a")
	p(" * facade type T whose first member is a struct plugin_facade. INIT is an")
	p(" * int (*)(T*) that fills in a zeroed T and returns 0 on success.")
	p(" */")
	p("#define PLUGIN_FACTORY_DEFINITION(T, INIT)                          \\")
	p("    static T* plugin_global_instance = NULL;                        \\")
	p("    PLUGIN_API struct plugin_facade* %s(void)         \\", plugin.CreateSymbol)
	p("    {                                                               \\")
	p("        if (!plugin_global_instance) {                              \\")
	p("            T* instance = (T*)calloc(1, sizeof(T));                 \\")
	p("            if (!instance || INIT(instance) != 0) {                 \\")
	p("                free(instance);                                     \\")
	p("                return NULL;                                        \\")
	p("            }                                                       \\")
	p("            plugin_global_instance = instance;                      \\")
	p("        }                                                           \\")
	p("        return (struct plugin_facade*)plugin_global_instance;      \\")
	p("    }                                                               \\")
	p("    PLUGIN_API void %s(void)                         \\", plugin.DestroySymbol)
	p("    {                                                               \\")
	p("        free(plugin_global_instance);                               \\")
	p("        plugin_global_instance = NULL;                              \\")
	p("    }")
	p("")
	p("#ifdef __cplusplus")
	p("}")
	p("#endif")
	p("")
	p("#endif /* PLUGIN_FACADE_H */")
}
