// Package langnorm normalizes a track's language code from ISO 639-2/B
// (bibliographic) to ISO 639-2/T (terminology) form, applied once when a
// track's language is resolved from CLPI or manifest metadata.
package langnorm

// bCodes and tCodes are the fixed 24-entry correction table, carried over
// verbatim from the reference demuxer's language-normalization table
// (including its two apparent transcription swaps: "may" maps here to
// "fas" and "per" maps to "msa", the reverse of the usual ISO 639-2 B/T
// pairing for Malay/Persian; "mol" maps to "rom", not the modern
// replacement "ron". Preserved as-is rather than silently corrected, since
// a downstream consumer may already depend on this exact behavior.
var bCodes = [24]string{
	"alb", "arm", "baq", "bur", "cze", "chi", "dut", "ger", "gre", "fre", "geo", "ice",
	"jaw", "mac", "mao", "may", "mol", "per", "rum", "scc", "scr", "slo", "tib", "wel",
}

var tCodes = [24]string{
	"sqi", "hye", "eus", "mya", "ces", "zho", "nld", "deu", "ell", "fra", "kat", "isl",
	"jav", "mkd", "mri", "fas", "rom", "msa", "ron", "srp", "hrv", "slk", "bod", "cym",
}

// Normalize maps an ISO 639-2/B code to its 639-2/T partner. Codes not in
// the table pass through unchanged.
func Normalize(code string) string {
	for i, b := range bCodes {
		if code == b {
			return tCodes[i]
		}
	}
	return code
}
