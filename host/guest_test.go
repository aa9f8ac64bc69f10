package host

// A hand-assembled guest exporting the boundary signature. The allocator is a
// bump allocator over global 0; cabi_free counts calls in the exported
// "frees" global.

func uleb(n uint32) []byte {
	var out []byte
	for {
		b := byte(n & 0x7f)
		n >>= 7
		if n != 0 {
			out = append(out, b|0x80)
			continue
		}
		return append(out, b)
	}
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func section(id byte, contents ...[]byte) []byte {
	body := concat(contents...)
	return concat([]byte{id}, uleb(uint32(len(body))), body)
}

func vec(items ...[]byte) []byte {
	return concat(uleb(uint32(len(items))), concat(items...))
}

func name(s string) []byte {
	return concat(uleb(uint32(len(s))), []byte(s))
}

func body(code ...byte) []byte {
	return concat(uleb(uint32(len(code))), code)
}

func funcExport(n string, idx byte) []byte {
	return concat(name(n), []byte{0x00, idx})
}

var guestWASM = concat(
	[]byte{0x00, 0x61, 0x73, 0x6d}, // magic
	[]byte{0x01, 0x00, 0x00, 0x00}, // version
	section(1, vec(
		[]byte{0x60, 0x04, 0x7f, 0x7f, 0x7f, 0x7f, 0x01, 0x7f}, // (i32 i32 i32 i32) -> i32
		[]byte{0x60, 0x03, 0x7f, 0x7f, 0x7f, 0x00},             // (i32 i32 i32) -> ()
		[]byte{0x60, 0x02, 0x7f, 0x7f, 0x01, 0x7f},             // (i32 i32) -> i32
	)),
	section(3, vec(
		[]byte{0}, []byte{1}, []byte{1}, []byte{1}, []byte{1},
		[]byte{1}, []byte{1}, []byte{1}, []byte{2},
	)),
	section(5, vec([]byte{0x00, 0x01})), // one page
	section(6, vec(
		[]byte{0x7f, 0x01, 0x41, 0x80, 0x08, 0x0b}, // heap top = 1024
		[]byte{0x7f, 0x01, 0x41, 0x00, 0x0b},       // frees = 0
	)),
	section(7, vec(
		concat(name("memory"), []byte{0x02, 0x00}),
		funcExport("cabi_realloc", 0),
		funcExport("cabi_free", 1),
		funcExport("echo", 2),
		funcExport("count", 3),
		funcExport("hello", 4),
		funcExport("tagof", 5),
		funcExport("fail", 6),
		funcExport("noop", 7),
		funcExport("add", 8),
		concat(name("frees"), []byte{0x03, 0x01}),
	)),
	section(10, vec(
		// cabi_realloc: p = (top + 7) & -8; top = p + size; return p
		body(0x01, 0x01, 0x7f,
			0x23, 0x00, 0x41, 0x07, 0x6a, 0x41, 0x78, 0x71, 0x21, 0x04,
			0x20, 0x04, 0x20, 0x03, 0x6a, 0x24, 0x00,
			0x20, 0x04, 0x0b),
		// cabi_free: frees++
		body(0x00, 0x23, 0x01, 0x41, 0x01, 0x6a, 0x24, 0x01, 0x0b),
		// echo: *retptr = argv[0]
		body(0x00,
			0x20, 0x00, 0x20, 0x02, 0x29, 0x03, 0x00, 0x37, 0x03, 0x00,
			0x20, 0x00, 0x20, 0x02, 0x29, 0x03, 0x08, 0x37, 0x03, 0x08,
			0x0b),
		// count: integer(argc)
		body(0x00,
			0x20, 0x00, 0x41, 0x02, 0x36, 0x02, 0x00,
			0x20, 0x00, 0x20, 0x01, 0x36, 0x02, 0x08,
			0x0b),
		// hello: text at 16
		body(0x00,
			0x20, 0x00, 0x41, 0x01, 0x36, 0x02, 0x00,
			0x20, 0x00, 0x41, 0x10, 0x36, 0x02, 0x08,
			0x0b),
		// tagof: integer(argv[0].tag)
		body(0x00,
			0x20, 0x00, 0x41, 0x02, 0x36, 0x02, 0x00,
			0x20, 0x00, 0x20, 0x02, 0x28, 0x02, 0x00, 0x36, 0x02, 0x08,
			0x0b),
		// fail: unreachable
		body(0x00, 0x00, 0x0b),
		// noop
		body(0x00, 0x0b),
		// add
		body(0x00, 0x20, 0x00, 0x20, 0x01, 0x6a, 0x0b),
	)),
	section(11, vec(
		concat([]byte{0x00, 0x41, 0x10, 0x0b}, name("hello\x00")),
	)),
)
