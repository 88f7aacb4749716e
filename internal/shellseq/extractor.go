package shellseq

// Control bytes delimiting an OSC sequence.
const (
	byteESC = 0x1b
	byteBEL = 0x07
)

// oscIdent is the reserved shell-integration sequence identifier.
const oscIdent = "633"

// maxSequenceLen caps a candidate sequence. A sequence that never
// terminates (broken shell integration, binary output) is flushed raw
// once it exceeds this, so the extractor cannot buffer unboundedly.
const maxSequenceLen = 4096

type extractorState int

const (
	stateGround extractorState = iota
	stateEscape                // saw ESC, deciding if an OSC follows
	stateIdent                 // inside "ESC ]", collecting the numeric identifier
	statePayload               // inside an OSC 633 sequence, collecting payload
	statePayloadEscape         // saw ESC inside payload, checking for ST (ESC \)
)

// Extractor isolates OSC 633 payloads from a raw terminal byte stream.
//
// Recognized sequences are stripped from the stream and delivered to the
// payload callback; every other byte, including foreign OSC sequences,
// passes through to the output callback unmodified. Sequences may be split
// across Feed calls.
//
// An extractor serves one stream and is not safe for concurrent use.
type Extractor struct {
	onPayload func(string)
	onOutput  func([]byte)

	state   extractorState
	raw     []byte // candidate sequence bytes, flushed verbatim if not ours
	ident   []byte
	payload []byte
}

// NewExtractor creates an extractor delivering isolated payloads to
// onPayload and passthrough bytes to onOutput. Either callback may be nil.
func NewExtractor(onPayload func(string), onOutput func([]byte)) *Extractor {
	return &Extractor{
		onPayload: onPayload,
		onOutput:  onOutput,
	}
}

// Feed scans the next chunk of the stream.
func (e *Extractor) Feed(p []byte) {
	var out []byte

	flush := func() {
		out = append(out, e.raw...)
		e.raw = e.raw[:0]
		e.ident = e.ident[:0]
		e.payload = e.payload[:0]
		e.state = stateGround
	}

	for i := 0; i < len(p); i++ {
		b := p[i]

		if e.state != stateGround && len(e.raw) >= maxSequenceLen {
			flush()
		}

		switch e.state {
		case stateGround:
			if b == byteESC {
				e.state = stateEscape
				e.raw = append(e.raw, b)
			} else {
				out = append(out, b)
			}

		case stateEscape:
			if b == ']' {
				e.state = stateIdent
				e.raw = append(e.raw, b)
			} else {
				// Not an OSC. Release the buffered ESC and rescan this
				// byte from ground so back-to-back escapes still match.
				flush()
				i--
			}

		case stateIdent:
			switch {
			case b >= '0' && b <= '9':
				e.ident = append(e.ident, b)
				e.raw = append(e.raw, b)
			case b == ';' && string(e.ident) == oscIdent:
				e.state = statePayload
				e.raw = append(e.raw, b)
			default:
				// Foreign OSC (title updates, hyperlinks, ...). Pass it
				// through untouched; its remaining bytes flow in ground.
				e.raw = append(e.raw, b)
				flush()
			}

		case statePayload:
			switch b {
			case byteBEL:
				e.emitPayload()
			case byteESC:
				e.state = statePayloadEscape
				e.raw = append(e.raw, b)
			default:
				e.payload = append(e.payload, b)
				e.raw = append(e.raw, b)
			}

		case statePayloadEscape:
			if b == '\\' {
				e.emitPayload()
			} else {
				// A stray ESC inside the payload, kept as content.
				e.payload = append(e.payload, byteESC, b)
				e.raw = append(e.raw, b)
				e.state = statePayload
			}
		}
	}

	if len(out) > 0 && e.onOutput != nil {
		e.onOutput(out)
	}
}

func (e *Extractor) emitPayload() {
	if e.onPayload != nil {
		e.onPayload(string(e.payload))
	}
	e.raw = e.raw[:0]
	e.ident = e.ident[:0]
	e.payload = e.payload[:0]
	e.state = stateGround
}
