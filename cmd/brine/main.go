// brine converts serialized documents between wire formats.
//
// Input is read from --in (or stdin), decoded with the --from codec, and
// written to --out (or stdout) with the --to codec. The document's type
// name and state travel unchanged; no registry is involved, so any type
// name round-trips.
//
// Usage:
//
//	brine --from json --to xml --in appt.json
//	brine --from yaml --fingerprint < appt.yaml
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/zoobzio/brine"
	"github.com/zoobzio/brine/base64"
	"github.com/zoobzio/brine/bson"
	"github.com/zoobzio/brine/json"
	"github.com/zoobzio/brine/xml"
	"github.com/zoobzio/brine/yaml"
)

// codecs maps short format names to tree codecs.
var codecs = map[string]func() brine.Codec{
	"xml":    xml.New,
	"json":   json.New,
	"base64": base64.New,
	"yaml":   yaml.New,
	"bson":   bson.New,
}

type options struct {
	from        string
	to          string
	in          string
	out         string
	fingerprint bool
	verbose     bool
}

func main() {
	log := logrus.New()
	log.SetOutput(os.Stderr)

	if err := run(os.Args[1:], os.Stdin, os.Stdout, log); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		log.WithError(err).Error("brine failed")
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer, log *logrus.Logger) error {
	var opts options
	flagSet := pflag.NewFlagSet("brine", pflag.ContinueOnError)
	flagSet.StringVarP(&opts.from, "from", "f", "json", "input format ("+formatNames()+")")
	flagSet.StringVarP(&opts.to, "to", "t", "", "output format; defaults to the input format")
	flagSet.StringVarP(&opts.in, "in", "i", "", "input file (default stdin)")
	flagSet.StringVarP(&opts.out, "out", "o", "", "output file (default stdout)")
	flagSet.BoolVar(&opts.fingerprint, "fingerprint", false, "print the state fingerprint instead of the document")
	flagSet.BoolVarP(&opts.verbose, "verbose", "v", false, "log decode and encode details")

	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return fmt.Errorf("unexpected argument: %s", rest[0])
	}
	if opts.to == "" {
		opts.to = opts.from
	}
	if opts.verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	from, err := codecFor(opts.from)
	if err != nil {
		return err
	}
	to, err := codecFor(opts.to)
	if err != nil {
		return err
	}

	data, err := readInput(opts.in, stdin)
	if err != nil {
		return err
	}

	doc, err := from.Decode(data)
	if err != nil {
		return fmt.Errorf("decode %s: %w", opts.from, err)
	}
	log.WithFields(logrus.Fields{
		"format":   opts.from,
		"typeName": doc.TypeName,
		"entries":  doc.State.Len(),
		"bytes":    len(data),
	}).Debug("decoded document")

	var out []byte
	if opts.fingerprint {
		out = []byte(doc.State.Fingerprint() + "\n")
	} else {
		out, err = to.Encode(doc)
		if err != nil {
			return fmt.Errorf("encode %s: %w", opts.to, err)
		}
		log.WithFields(logrus.Fields{
			"format": opts.to,
			"bytes":  len(out),
		}).Debug("encoded document")
	}

	return writeOutput(opts.out, stdout, out)
}

func codecFor(name string) (brine.Codec, error) {
	newCodec, ok := codecs[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q (want one of %s)", brine.ErrUnsupportedFormat, name, formatNames())
	}
	return newCodec(), nil
}

func formatNames() string {
	names := make([]string, 0, len(codecs))
	for name := range codecs {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

func writeOutput(path string, stdout io.Writer, data []byte) error {
	if path == "" || path == "-" {
		_, err := stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
