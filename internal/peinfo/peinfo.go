// SPDX-License-Identifier: MPL-2.0

// Package peinfo answers one question about an executable or shared library:
// is it a 32-bit or a 64-bit image? The answer gates embedded-interpreter
// loading (a runtime library must match the host process bitness) and the
// -m32/-m64 switch handed to compiler probes.
package peinfo

import (
	"debug/elf"
	"debug/macho"
	"debug/pe"
	"strconv"
)

// Bitness is an executable's word size.
type Bitness int

const (
	// BitnessUnknown means the file could not be classified.
	BitnessUnknown Bitness = 0
	// Bitness32 is a 32-bit image.
	Bitness32 Bitness = 32
	// Bitness64 is a 64-bit image.
	Bitness64 Bitness = 64
)

// String returns "32", "64" or "unknown".
func (b Bitness) String() string {
	if b == BitnessUnknown {
		return "unknown"
	}
	return strconv.Itoa(int(b))
}

// Host returns the bitness of the running process.
func Host() Bitness {
	if strconv.IntSize == 64 {
		return Bitness64
	}
	return Bitness32
}

// Of classifies the image at path. PE, ELF and Mach-O formats are probed in
// turn; anything else is BitnessUnknown. Only headers are read.
func Of(path string) Bitness {
	if b := ofPE(path); b != BitnessUnknown {
		return b
	}
	if b := ofELF(path); b != BitnessUnknown {
		return b
	}
	return ofMachO(path)
}

func ofPE(path string) Bitness {
	f, err := pe.Open(path)
	if err != nil {
		return BitnessUnknown
	}
	defer f.Close()
	switch f.Machine {
	case pe.IMAGE_FILE_MACHINE_AMD64, pe.IMAGE_FILE_MACHINE_ARM64:
		return Bitness64
	case pe.IMAGE_FILE_MACHINE_I386, pe.IMAGE_FILE_MACHINE_ARMNT:
		return Bitness32
	default:
		return BitnessUnknown
	}
}

func ofELF(path string) Bitness {
	f, err := elf.Open(path)
	if err != nil {
		return BitnessUnknown
	}
	defer f.Close()
	switch f.Class {
	case elf.ELFCLASS64:
		return Bitness64
	case elf.ELFCLASS32:
		return Bitness32
	default:
		return BitnessUnknown
	}
}

func ofMachO(path string) Bitness {
	f, err := macho.Open(path)
	if err != nil {
		return BitnessUnknown
	}
	defer f.Close()
	if f.Magic == macho.Magic64 {
		return Bitness64
	}
	return Bitness32
}
