package engine

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/haolipeng/ipsumdump/pkg/fields"
	"github.com/haolipeng/ipsumdump/pkg/source"
	"github.com/haolipeng/ipsumdump/pkg/types"
)

// directivePrefixes lists the recognized "!" directives. processDirective
// does not consult this list: it splits off the first whitespace-delimited
// word and matches it exactly against these names in a switch.
var directivePrefixes = []string{"!data", "!contents", "!flowid", "!aggregate", "!binary", "!IPSummaryDump"}

// processDirective dispatches a "!"-prefixed record to the matching
// handler. Unknown directives are ignored silently, per spec. It
// returns nothing -- directives never produce a packet.
func (e *Engine) processDirective(line, landmark string) {
	word, rest := splitDirectiveWord(line)
	switch word {
	case "!data", "!contents":
		e.bangData(tokenizeDirectiveArgs(rest))
	case "!flowid":
		e.bangFlowID(tokenizeDirectiveArgs(rest), landmark)
	case "!aggregate":
		e.bangAggregate(tokenizeDirectiveArgs(rest), landmark)
	case "!binary":
		e.bangBinary(landmark)
	case "!IPSummaryDump":
		e.checkBanner(rest)
	default:
		// unrecognized "!" directive: ignored silently
	}
}

func splitDirectiveWord(line string) (word, rest string) {
	i := strings.IndexAny(line, " \t")
	if i < 0 {
		return line, ""
	}
	return line[:i], strings.TrimLeft(line[i:], " \t")
}

func tokenizeDirectiveArgs(rest string) []string {
	if rest == "" {
		return nil
	}
	return strings.Fields(rest)
}

// checkBanner parses "MAJOR.MINOR" from a !IPSummaryDump directive. A
// major-version mismatch is a warning; an unrecognized minor is clamped
// down to the highest minor this engine understands.
func (e *Engine) checkBanner(versionText string) {
	e.sawBanner = true
	major, minor, ok := parseVersion(strings.TrimSpace(versionText))
	if !ok {
		e.warn("", "malformed !IPSummaryDump banner %q", versionText)
		return
	}
	if major != supportedMajorVersion {
		e.warn("", "!IPSummaryDump major version %d.%d does not match expected %d.x", major, minor, supportedMajorVersion)
	}
	if minor > maxSupportedMinorVersion {
		minor = maxSupportedMinorVersion
	}
	e.minorVersion = minor
}

const (
	supportedMajorVersion   = 1
	maxSupportedMinorVersion = 3
)

func parseVersion(s string) (major, minor int, ok bool) {
	parts := strings.SplitN(s, ".", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	maj, err1 := strconv.Atoi(parts[0])
	min, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return maj, min, true
}

// bangData replaces the active field list and recomputes the
// order-key permutation. Mid-stream occurrences reset the
// format-complaint latch, starting a fresh diagnostic epoch.
func (e *Engine) bangData(names []string) {
	e.fieldNames = names
	e.fieldReaders = make([]*fields.FieldReader, len(names))
	for i, name := range names {
		if fr, ok := e.registry.Find(name); ok {
			e.fieldReaders[i] = fr
		} else {
			e.fieldReaders[i] = fields.NullReader
		}
	}
	e.fieldOrder = stableOrderPermutation(e.fieldReaders)
	e.formatComplained = false
}

// stableOrderPermutation returns indices into readers sorted by
// (Order, declaration index) -- a stable sort where ties keep
// declaration order, matching an insertion sort over a handful of
// fields.
func stableOrderPermutation(readers []*fields.FieldReader) []int {
	idx := make([]int, len(readers))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return readers[idx[a]].Order < readers[idx[b]].Order
	})
	return idx
}

// bangFlowID sets the default 5-tuple. "-" placeholders mean "leave
// unset". A malformed directive clears haveFlowID and emits a warning
// through the error handler but never stops the stream.
func (e *Engine) bangFlowID(args []string, landmark string) {
	if len(args) < 4 {
		e.haveFlowID = false
		e.reportDirectiveError("!flowid", landmark, fmt.Errorf("expected SRC SPORT DST DPORT [PROTO], got %d args", len(args)))
		return
	}
	fid := &types.FlowID{}
	ok := true
	if args[0] != "-" {
		ip, pok := fields.ParseDottedQuad(args[0])
		ok = ok && pok
		fid.Src = ip
	}
	if args[1] != "-" {
		v, err := strconv.ParseUint(args[1], 10, 16)
		ok = ok && err == nil
		fid.Sport = uint16(v)
	}
	if args[2] != "-" {
		ip, pok := fields.ParseDottedQuad(args[2])
		ok = ok && pok
		fid.Dst = ip
	}
	if args[3] != "-" {
		v, err := strconv.ParseUint(args[3], 10, 16)
		ok = ok && err == nil
		fid.Dport = uint16(v)
	}
	if len(args) >= 5 && args[4] != "-" {
		switch args[4] {
		case "T":
			fid.Proto = 6
		case "U":
			fid.Proto = 17
		case "I":
			fid.Proto = 1
		default:
			v, err := strconv.ParseUint(args[4], 10, 8)
			ok = ok && err == nil
			fid.Proto = uint8(v)
		}
	}
	if !ok {
		e.haveFlowID = false
		e.reportDirectiveError("!flowid", landmark, fmt.Errorf("malformed field in %q", strings.Join(args, " ")))
		return
	}
	e.flowID = fid
	e.haveFlowID = true
}

// bangAggregate sets the default aggregate annotation value.
func (e *Engine) bangAggregate(args []string, landmark string) {
	if len(args) != 1 {
		e.haveAggregate = false
		e.reportDirectiveError("!aggregate", landmark, fmt.Errorf("expected exactly one value, got %d", len(args)))
		return
	}
	v, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		e.haveAggregate = false
		e.reportDirectiveError("!aggregate", landmark, err)
		return
	}
	e.aggregate = uint32(v)
	e.haveAggregate = true
}

// bangBinary switches subsequent records to binary framing. Valid only
// while the source is still in text mode.
func (e *Engine) bangBinary(landmark string) {
	if e.src.Binary() {
		e.reportDirectiveError("!binary", landmark, fmt.Errorf("already in binary mode"))
		return
	}
	e.src.SetBinary(true)
}

func (e *Engine) reportDirectiveError(directive, landmark string, err error) {
	wrapped := types.NewDirectiveError(directive, landmark, err)
	e.warn(landmark, "%v", wrapped)
	if e.metrics != nil {
		e.metrics.IncrementDirectiveErrors()
	}
}

func (e *Engine) warn(landmark, format string, args ...any) {
	if landmark == "" {
		landmark = e.src.Landmark()
	}
	if e.onError != nil {
		e.onError(source.SeverityWarning, landmark, format, args...)
	}
}
