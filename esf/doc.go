/*
Package esf reads and writes ESF, the self-describing tree format of campaign saves and
startpos files.

A file is a header, a tree of tagged nodes and three string tables: record names, UTF-16
strings and ASCII strings. Nodes refer to strings by index, so an encoder must see the whole
tree before writing any of it.

Records are the only containers. A record header is either packed into two bytes (three flag
bits, a four bit version and a nine bit name index) or spelled out as a flags byte, a u16 name
index and a u8 version; the root record always uses the long form. A record with
HasNestedBlocks holds several groups of children, each with its own size.

Integer and boolean scalars and integer arrays have "optimized" forms that use shorter tags for
common values. The Optimized field of the corresponding node types remembers which form was
read, and optimized values are written back with the shortest tag that fits them.
*/
package esf
