// Package drive defines the protocol-neutral view of a remote file share.
//
// A Drive is one configured connection to a WebDAV server, an SMB share or an
// NFS export. Every backend normalizes its listings into FileEntry values and
// reports failures through the Error taxonomy in this package, so callers can
// browse, delete and fetch without knowing which protocol is behind it.
//
// Backends live in the webdav, smb and nfs subpackages. Listing policy
// (self-entry removal, directories first, hidden files) is applied by Policy
// and List, never by the backends themselves.
package drive
