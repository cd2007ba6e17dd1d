// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package jvmpf // import "github.com/openprofiling/jvm-profiler/jvmpf"

import "strings"

// javaBaseTypes maps a basic type signature character to the full type name
var javaBaseTypes = map[byte]string{
	'B': "byte",
	'C': "char",
	'D': "double",
	'F': "float",
	'I': "int",
	'J': "long",
	'S': "short",
	'V': "void",
	'Z': "boolean",
}

// FormatMethodName returns the fully qualified dotted name for a class and
// method as reported by the JVM: ("java/lang/String", "indexOf") becomes
// "java.lang.String.indexOf".
func FormatMethodName(class, method string) string {
	if class == "" {
		return method
	}
	return strings.ReplaceAll(class, "/", ".") + "." + method
}

// FormatMethodSignature renders class, method and a JVMS method type
// signature (JVMS §4.3) as a display name with argument types, for example
// "java.lang.String.indexOf(java.lang.String, int)". A malformed signature
// degrades to FormatMethodName.
func FormatMethodSignature(class, method, signature string) string {
	name := FormatMethodName(class, method)

	// The argument list sits between the parentheses; the return type that
	// follows is not part of the display name.
	end := strings.IndexByte(signature, ')')
	if end < 1 || signature[0] != '(' {
		return name
	}

	var sb strings.Builder
	sb.WriteString(name)
	sb.WriteByte('(')
	args := signature[1:end]
	for first := true; args != ""; first = false {
		if !first {
			sb.WriteString(", ")
		}
		rest, ok := appendTypeSignature(args, &sb)
		if !ok {
			return name
		}
		args = rest
	}
	sb.WriteByte(')')
	return sb.String()
}

// appendTypeSignature decodes the leading JavaTypeSignature of sig into sb
// and returns the remainder.
func appendTypeSignature(sig string, sb *strings.Builder) (rest string, ok bool) {
	var arrays int
	i := 0
	for ; i < len(sig) && sig[i] == '['; i++ {
		arrays++
	}
	if i >= len(sig) {
		return "", false
	}

	typeChar := sig[i]
	i++
	if typeChar == 'L' {
		end := strings.IndexByte(sig[i:], ';')
		if end < 0 {
			return "", false
		}
		sb.WriteString(strings.ReplaceAll(sig[i:i+end], "/", "."))
		i += end + 1
	} else if typeName, known := javaBaseTypes[typeChar]; known {
		sb.WriteString(typeName)
	} else {
		return "", false
	}

	for ; arrays > 0; arrays-- {
		sb.WriteString("[]")
	}
	return sig[i:], true
}
