package trap

// ESR_EL1 exception-class values (bits 31:26) for the classes the kernel
// cares to tell apart. Everything else lands in ClassOther.
const (
	ecUnknown       = 0b000000
	ecWFx           = 0b000001
	ecSVC64         = 0b010101
	ecInstrAbortEL0 = 0b100000
	ecInstrAbortEL1 = 0b100001
	ecDataAbortEL0  = 0b100100
	ecDataAbortEL1  = 0b100101
	ecBreakpointEL0 = 0b110000
	ecBreakpointEL1 = 0b110001
	ecBRK64         = 0b111100
	ecSError        = 0b101111
)

// Class is the decoded exception class of a trap.
type Class uint8

const (
	ClassUnknown Class = iota
	ClassWFI
	ClassSVC
	ClassInstrAbort
	ClassDataAbort
	ClassBreakpoint
	ClassSError
	ClassOther

	// NumClasses sizes the per-class counters.
	NumClasses
)

func (c Class) String() string {
	switch c {
	case ClassUnknown:
		return "unknown"
	case ClassWFI:
		return "wfi"
	case ClassSVC:
		return "svc"
	case ClassInstrAbort:
		return "instr-abort"
	case ClassDataAbort:
		return "data-abort"
	case ClassBreakpoint:
		return "breakpoint"
	case ClassSError:
		return "serror"
	case ClassOther:
		return "other"
	default:
		return "invalid"
	}
}

// Syndrome is a decoded ESR_EL1 value.
type Syndrome struct {
	EC    uint8
	IL    bool
	ISS   uint32
	Class Class
}

// DecodeESR splits an ESR_EL1 value into its fields and maps the raw
// exception class onto the kernel's coarser Class set.
func DecodeESR(esr uint64) Syndrome {
	ec := uint8(esr >> 26 & 0x3F)
	return Syndrome{
		EC:    ec,
		IL:    esr&(1<<25) != 0,
		ISS:   uint32(esr & 0x1FFFFFF),
		Class: classOf(ec),
	}
}

func classOf(ec uint8) Class {
	switch ec {
	case ecUnknown:
		return ClassUnknown
	case ecWFx:
		return ClassWFI
	case ecSVC64:
		return ClassSVC
	case ecInstrAbortEL0, ecInstrAbortEL1:
		return ClassInstrAbort
	case ecDataAbortEL0, ecDataAbortEL1:
		return ClassDataAbort
	case ecBreakpointEL0, ecBreakpointEL1, ecBRK64:
		return ClassBreakpoint
	case ecSError:
		return ClassSError
	default:
		return ClassOther
	}
}
