// Copyright 2026 RefGraph Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command scenedump inspects a graph file without loading it: it prints the
// header identity and, on request, walks the class and object tables using
// only the stream layer, so no class needs to be registered.
package main

import (
	"fmt"
	"os"

	"github.com/attic-labs/kingpin"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/sirupsen/logrus"

	"github.com/refgraph/refgraph/objstream"
	"github.com/refgraph/refgraph/stream"
)

func main() {
	kingpin.EnableFileExpansion = false
	kingpin.CommandLine.HelpFlag.Short('h')

	app := kingpin.New("scenedump", "Inspects the contents of a graph file.")
	verbose := app.Flag("verbose", "show debug output").Short('v').Bool()
	showClasses := app.Flag("classes", "list the classes used in the file").Bool()
	showObjects := app.Flag("objects", "list the stored object instances").Bool()
	path := app.Arg("file", "the graph file to inspect").Required().String()

	kingpin.MustParse(app.Parse(os.Args[1:]))

	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	if err := dump(*path, *showClasses, *showObjects); err != nil {
		logrus.WithError(err).Error("failed to inspect file")
		os.Exit(1)
	}
}

func dump(path string, showClasses, showObjects bool) error {
	f, err := os.Open(path)

	if err != nil {
		return err
	}

	defer f.Close()

	ls, err := stream.NewLoadStream(f)

	if err != nil {
		return err
	}

	v := ls.ApplicationVersion()
	fmt.Printf("file:           %s (%s)\n", path, humanize.Bytes(uint64(ls.Size())))
	fmt.Printf("written by:     %s %d.%d.%d\n", ls.ApplicationName(), v.Major, v.Minor, v.Revision)
	fmt.Printf("format version: %d\n", ls.FormatVersion())
	fmt.Printf("float width:    %d bytes\n", ls.FloatPrecision())

	if !showClasses && !showObjects {
		return ls.Close()
	}

	footer, err := readFooter(ls)

	if err != nil {
		return err
	}

	classNames, err := readClassTable(ls, footer)

	if err != nil {
		return err
	}

	if showClasses {
		fmt.Printf("\n%d classes:\n", footer.classCount)

		for _, name := range classNames {
			fmt.Printf("  %s\n", color.CyanString(name))
		}
	}

	if showObjects {
		if err := dumpObjects(ls, footer, classNames); err != nil {
			return err
		}
	}

	return ls.Close()
}

type footer struct {
	classTableOffset uint64
	classCount       uint32
	objTableOffset   uint64
	objCount         uint32
}

func readFooter(ls *stream.LoadStream) (footer, error) {
	var ft footer

	if err := ls.SetPosition(ls.Size() - 24); err != nil {
		return ft, err
	}

	var err error

	if ft.classTableOffset, err = ls.ReadUint64(); err != nil {
		return ft, err
	}

	if ft.classCount, err = ls.ReadUint32(); err != nil {
		return ft, err
	}

	if ft.objTableOffset, err = ls.ReadUint64(); err != nil {
		return ft, err
	}

	ft.objCount, err = ls.ReadUint32()
	return ft, err
}

// readClassTable walks the class table chunks raw, skipping the field
// descriptor lists.
func readClassTable(ls *stream.LoadStream, ft footer) ([]string, error) {
	if err := ls.SetPosition(int64(ft.classTableOffset)); err != nil {
		return nil, err
	}

	if err := ls.ExpectChunk(objstream.ChunkClassTable); err != nil {
		return nil, err
	}

	names := make([]string, 0, ft.classCount)

	for i := uint32(0); i < ft.classCount; i++ {
		if err := ls.ExpectChunk(objstream.ChunkClassRTTI); err != nil {
			return nil, err
		}

		name, err := ls.ReadString()

		if err != nil {
			return nil, err
		}

		pluginID, err := ls.ReadString()

		if err != nil {
			return nil, err
		}

		logrus.Debugf("class %q from plugin %q", name, pluginID)
		names = append(names, name)

		if err := ls.CloseChunk(); err != nil {
			return nil, err
		}

		// The field list is not needed for a listing; CloseChunk skips it.
		if err := ls.ExpectChunk(objstream.ChunkFieldList); err != nil {
			return nil, err
		}

		if err := ls.CloseChunk(); err != nil {
			return nil, err
		}
	}

	return names, ls.CloseChunk()
}

func dumpObjects(ls *stream.LoadStream, ft footer, classNames []string) error {
	if err := ls.SetPosition(int64(ft.objTableOffset)); err != nil {
		return err
	}

	if err := ls.ExpectChunk(objstream.ChunkObjectTable); err != nil {
		return err
	}

	fmt.Printf("\n%d objects:\n", ft.objCount)

	for i := uint32(0); i < ft.objCount; i++ {
		classIndex, err := ls.ReadUint32()

		if err != nil {
			return err
		}

		offset, err := ls.ReadUint64()

		if err != nil {
			return err
		}

		name := fmt.Sprintf("<invalid class index %d>", classIndex)

		if int(classIndex) < len(classNames) {
			name = classNames[classIndex]
		}

		fmt.Printf("  #%-5d %s at offset %d\n", i+1, color.CyanString(name), offset)
	}

	return ls.CloseChunk()
}
