package tree

// XMLNamespace is the namespace the xml prefix is implicitly bound to.
const XMLNamespace = "http://www.w3.org/XML/1998/namespace"
