/*
Package tabcodec reads and writes the binary table files used by Total War games:
DB tables and Loc localisation tables, plus the schema that describes them.

A table file carries no column information, so decoding needs a Definition:
an ordered list of raw Fields, each with a FieldType. The same table may have
several definitions, one per version; a Schema keeps them all and picks the one
matching the version stored in the file.

# Derived columns

Rows are not laid out like the raw fields. Each Definition is expanded into
derived columns:

1. A field with IsBitwise > 1 becomes that many boolean columns, {name}_1 to
{name}_N, bit 1 being the least significant.

2. A field with EnumValues becomes a text column holding the label. Values with
no label are kept as their decimal text.

3. Fields that are channels of a colour group (IsPartOfColour) are merged into
a single RRGGBB text column named {prefix}_hex, appended after all other columns.

4. Everything else maps one to one.

Bitwise wins over enum, and enum over colour.

# Binary layout

All values are little-endian. Strings are prefixed with a u16 length (in bytes
for StringU8, in UTF-16 code units for StringU16); optional values are prefixed
with a presence byte. Sequences hold a nested table with a u16 or u32 row count.

DB files start with an optional GUID marker (FD FE FC FF + StringU16) and an
optional version marker (FC FD FE FF + i32), then a mysterious byte, a u32 entry
count and the rows. Loc files start with a byte order mark, "LOC", a zero byte,
an i32 version and a u32 entry count.

# Decoding damaged tables

DecodeTable can salvage the rows that precede a malformed one; see DecodeStatus.

# Storing schemas

Store persists definitions and patches in a Bolt file (or in memory), one bucket
per table, each record prefixed by its Encoding byte and an xxhash checksum.
*/
package tabcodec
