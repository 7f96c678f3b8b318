// Command musgen regenerates core/records_mus.gen.go, the binary
// serializers for the records kept in the session store.
//
// Run it from the repository root or from core/.
package main

import (
	"os"
	"reflect"
	"strings"

	musgen "github.com/mus-format/musgen-go/mus"
	genops "github.com/mus-format/musgen-go/options/generate"
	structops "github.com/mus-format/musgen-go/options/struct"
	typeops "github.com/mus-format/musgen-go/options/type"
	"github.com/poiesic/docchat/core"
)

const output = "./core/records_mus.gen.go"

func main() {
	cwd, err := os.Getwd()
	if err != nil {
		panic(err)
	}
	if strings.HasSuffix(cwd, "core") {
		if err := os.Chdir(".."); err != nil {
			panic(err)
		}
	}

	g, err := musgen.NewCodeGenerator(
		genops.WithPkgPath("github.com/poiesic/docchat/core"),
	)
	if err != nil {
		panic(err)
	}

	g.AddDefinedType(reflect.TypeFor[core.ID]())
	g.AddDefinedType(reflect.TypeFor[core.DocumentKind]())
	g.AddDefinedType(reflect.TypeFor[core.Role]())

	// Unix micro timestamps
	micros := typeops.WithTimeUnit(typeops.Micro)

	// Header, Text, Vector
	err = g.AddStruct(reflect.TypeFor[core.Chunk](),
		structops.WithField(),
		structops.WithField(),
		structops.WithField())
	if err != nil {
		panic(err)
	}

	// Name, Kind, Chunks, InsertedAt
	err = g.AddStruct(reflect.TypeFor[core.Document](),
		structops.WithField(),
		structops.WithField(),
		structops.WithField(),
		structops.WithField(micros))
	if err != nil {
		panic(err)
	}

	// Seq, Role, Content, Context, Timestamp
	err = g.AddStruct(reflect.TypeFor[core.ConversationTurn](),
		structops.WithField(),
		structops.WithField(),
		structops.WithField(),
		structops.WithField(),
		structops.WithField(micros))
	if err != nil {
		panic(err)
	}

	bs, err := g.Generate()
	if err != nil {
		panic(err)
	}

	if err := os.WriteFile(output, bs, 0644); err != nil {
		panic(err)
	}
}
