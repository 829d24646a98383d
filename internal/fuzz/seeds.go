package fuzztests

import "testing"

const maxFuzzInput = 1 << 16 // 64 KiB

var seedModules = []string{
	`func @diamond {
bb0:
  %x = new $T
  %c = const $Bool
  cond_br %c, bb1, bb2
bb1:
  unreachable
bb2:
  use %x
  br bb3
bb3:
  return
}
`,
	`func @borrow {
bb0(%y : @owned $T):
  %b = begin_borrow %y
  use %b
  consume %y
  return
}
`,
	`func @loop {
bb0:
  %x = new $T
  br bb1
bb1:
  use %x
  br bb1
}
`,
	`func @noreturn {
bb0:
  %x = new $T
  apply [noreturn] @fatal()
  destroy_value %x
  return
}
`,
	`func @box {
bb0:
  %b = alloc_box $Obj
  unreachable
}
`,
}

func addSeeds(f *testing.F) {
	for _, src := range seedModules {
		f.Add([]byte(src))
	}
	f.Add([]byte(""))
	f.Add([]byte("func @f {\n"))
	f.Add([]byte("func @f {\nbb0:\n  use %undefined\n}\n"))
}

func clip(input []byte) []byte {
	if len(input) > maxFuzzInput {
		input = input[:maxFuzzInput]
	}
	return append([]byte(nil), input...)
}
