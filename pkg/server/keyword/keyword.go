package keyword

// CtxKey is the fasthttp user value holding the request-scoped context.Context.
const CtxKey = "ctx"
