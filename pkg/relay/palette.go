package relay

// DefaultPalette is the fixed rotation of display colors. The Nth
// successful join receives entry (N-1) mod len. The counter only ever
// advances, so colors are never reclaimed when sessions leave.
var DefaultPalette = []string{
	"#FF6B6B", "#4ECDC4", "#45B7D1", "#FFA07A", "#98D8C8",
	"#F7DC6F", "#BB8FCE", "#85C1E2", "#F8B500", "#52B788",
}
