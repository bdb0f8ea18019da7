// Package vars implements the variable scope of a build definition:
// named values referenced from command templates and file paths via
// ${NAME} syntax. Values may reference other variables; resolution is
// lazy, recursive, and cached for the lifetime of one run.
package vars
