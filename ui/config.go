package ui

// Config contains display configuration for a listening session.
type Config struct {
	// Title is shown in the header, usually the source name.
	Title string

	// Voice and Speed are echoed in the header.
	Voice string
	Speed float64

	// Text is what is being read; the copy key puts it on the
	// clipboard.
	Text string

	// Plain disables the animated display even on a TTY.
	Plain bool `env:"READABLE_PLAIN"`

	// RenderStyle picks the glamour style for history show --render.
	RenderStyle string `env:"GLAMOUR_STYLE" envDefault:"auto"`
}
