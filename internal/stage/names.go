package stage

// Name identifies a pipeline stage.
type Name string

const (
	NameScript    Name = "script"
	NameNarration Name = "narration"
	NameRender    Name = "render"
	NamePublish   Name = "publish"

	// NamePrepare attributes failures that happen before the script stage,
	// such as an unusable job directory. It is not part of Ordered.
	NamePrepare Name = "prepare"
)

// Ordered returns the stages in execution order.
func Ordered() []Name {
	return []Name{NameScript, NameNarration, NameRender, NamePublish}
}

func (n Name) String() string { return string(n) }
