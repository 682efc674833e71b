// Package node holds the running node's identity: its mutable name, the
// address it announces to peers and its broadcast address.
//
// It also renders the text blocks returned by WHO and LIST.
package node
