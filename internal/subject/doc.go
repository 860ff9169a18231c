// Package subject provides parsing and canonicalization of subject
// strings, the dot-notation addresses used to route lifecycle
// notifications through the bus.
//
// # Subject Format
//
// Subjects use dot-notation with two structural scope prefixes and a
// trailing modifier:
//
//	#.+                  any entity created
//	#.-                  any entity destroyed
//	@health.+            component "health" added to any entity
//	@health.~            component "health" changed on any entity
//	#42.@inventory.~     component "inventory" changed on entity 42
//	#player.@health.-    component "health" removed from entity "player"
//
// A scope prefix (# for entity scope, @ for component scope) is split
// into its own token followed by the scoped identifier:
//
//	"@health"   -> [@ health]
//	"#42"       -> [# 42]
//
// # Modifiers
//
// Three modifiers mark the lifecycle phase: + (created/added),
// - (destroyed/removed), ~ (changed). A modifier written at the head of
// the subject is shorthand for the same modifier as the final segment:
//
//	"+@health"  ==  "@health.+"  -> [@ health +]
//	"-#"        ==  "#.-"        -> [# -]
//
// A leading ! is rewritten the same way and is reserved for
// command-style subjects.
//
// # Wildcards
//
// The single segment wildcard * matches any one token at the final
// segment during publish:
//
//	"@health.*"   matches "@health.+", "@health.-", "@health.~"
//
// Parse is pure and total: malformed delimiters never fail, they simply
// yield fewer tokens. Two subject strings denoting the same path always
// canonicalize to the same token sequence.
package subject
