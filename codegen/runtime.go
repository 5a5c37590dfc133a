package codegen

// RuntimeHeader is the support library every generated, non-standalone
// translation unit #includes (spec §4.1, §6): the morsel-bounds
// struct threaded through resumption_state, a growable output buffer
// fused sinks accumulate rows into, and a minimal open-addressing hash
// table fused ht-probe/insert suboperators use. It is pure C with no
// external dependencies and no callback into the Go process — the
// compiled shared object is entirely self-contained, matching how
// codegen.Load/Handle.Resolve treat it as an opaque dlsym target.
//
// Struct layouts here must match subop.BoundsStruct/VecStruct/HtStruct
// byte for byte (spec §6 "State structs ... laid out identically").
// exec has no Go-side mirrors of these structs.
const RuntimeHeader = `#ifndef INKFUSE_RUNTIME_H
#define INKFUSE_RUNTIME_H

#include <stdint.h>
#include <stddef.h>
#include <stdlib.h>
#include <string.h>

struct inkfuse_bounds {
    int64_t start;
    int64_t end;
};

struct inkfuse_vec {
    uint8_t* data;
    int64_t len;
    int64_t cap;
    int64_t elem_size;
};

static inline struct inkfuse_vec* inkfuse_vec_create(int64_t elem_size) {
    struct inkfuse_vec* v = (struct inkfuse_vec*)malloc(sizeof(struct inkfuse_vec));
    v->cap = 1024;
    v->len = 0;
    v->elem_size = elem_size;
    v->data = (uint8_t*)malloc((size_t)(v->cap * elem_size));
    return v;
}

static inline uint8_t* inkfuse_vec_append(struct inkfuse_vec* v) {
    if (v->len >= v->cap) {
        v->cap *= 2;
        v->data = (uint8_t*)realloc(v->data, (size_t)(v->cap * v->elem_size));
    }
    uint8_t* row = v->data + v->len * v->elem_size;
    v->len++;
    return row;
}

static inline uint64_t inkfuse_hash_bytes(const void* p, size_t n) {
    const uint8_t* b = (const uint8_t*)p;
    uint64_t h = 1469598103934665603ULL;
    for (size_t i = 0; i < n; i++) {
        h ^= b[i];
        h *= 1099511628211ULL;
    }
    return h;
}

/* Open-addressing, linear-probed, fixed key/payload-width hash table
 * backing the fused ht-probe/insert suboperators (spec §4.3 "Build").
 * One instance per suboperator per thread, lazily created in a
 * thread_params slot on first use: no cross-thread sharing, so no
 * locking is needed. */
struct inkfuse_ht {
    uint8_t* slots;
    uint8_t* filled;
    int64_t capacity;
    int64_t count;
    int64_t keylen;
    int64_t payloadlen;
};

static inline struct inkfuse_ht* inkfuse_ht_create(int64_t keylen, int64_t payloadlen) {
    struct inkfuse_ht* t = (struct inkfuse_ht*)malloc(sizeof(struct inkfuse_ht));
    t->capacity = 1024;
    t->count = 0;
    t->keylen = keylen;
    t->payloadlen = payloadlen;
    t->slots = (uint8_t*)calloc((size_t)t->capacity, (size_t)(keylen + payloadlen));
    t->filled = (uint8_t*)calloc((size_t)t->capacity, 1);
    return t;
}

static inline void inkfuse_ht_grow(struct inkfuse_ht* t) {
    int64_t oldcap = t->capacity;
    uint8_t* oldslots = t->slots;
    uint8_t* oldfilled = t->filled;
    int64_t stride = t->keylen + t->payloadlen;

    t->capacity = oldcap * 2;
    t->slots = (uint8_t*)calloc((size_t)t->capacity, (size_t)stride);
    t->filled = (uint8_t*)calloc((size_t)t->capacity, 1);
    t->count = 0;

    for (int64_t i = 0; i < oldcap; i++) {
        if (!oldfilled[i]) continue;
        uint8_t* oldslot = oldslots + i * stride;
        uint64_t h = inkfuse_hash_bytes(oldslot, (size_t)t->keylen);
        int64_t idx = (int64_t)(h & (uint64_t)(t->capacity - 1));
        while (t->filled[idx]) {
            idx = (idx + 1) & (t->capacity - 1);
        }
        t->filled[idx] = 1;
        memcpy(t->slots + idx * stride, oldslot, (size_t)stride);
        t->count++;
    }
    free(oldslots);
    free(oldfilled);
}

/* Looks up key (t->keylen bytes); if absent, inserts it with a
 * zero-initialized payload. Returns a pointer to the payload region
 * (immediately past the key bytes) of the matched/inserted slot and
 * reports whether a new row was inserted via *inserted. */
static inline uint8_t* inkfuse_ht_lookup_or_insert(struct inkfuse_ht* t, const void* key, uint8_t* inserted) {
    if (t->count * 2 >= t->capacity) {
        inkfuse_ht_grow(t);
    }
    int64_t stride = t->keylen + t->payloadlen;
    uint64_t h = inkfuse_hash_bytes(key, (size_t)t->keylen);
    int64_t idx = (int64_t)(h & (uint64_t)(t->capacity - 1));
    for (;;) {
        uint8_t* slot = t->slots + idx * stride;
        if (!t->filled[idx]) {
            memcpy(slot, key, (size_t)t->keylen);
            memset(slot + t->keylen, 0, (size_t)t->payloadlen);
            t->filled[idx] = 1;
            t->count++;
            *inserted = 1;
            return slot + t->keylen;
        }
        if (memcmp(slot, key, (size_t)t->keylen) == 0) {
            *inserted = 0;
            return slot + t->keylen;
        }
        idx = (idx + 1) & (t->capacity - 1);
    }
}

/* Looks up key without inserting; returns NULL on a miss. No
 * suboperator's Emit calls it: the join probe (KindHtLookup) has no
 * fused implementation. */
static inline uint8_t* inkfuse_ht_lookup(struct inkfuse_ht* t, const void* key) {
    if (t->count == 0) {
        return NULL;
    }
    int64_t stride = t->keylen + t->payloadlen;
    uint64_t h = inkfuse_hash_bytes(key, (size_t)t->keylen);
    int64_t idx = (int64_t)(h & (uint64_t)(t->capacity - 1));
    int64_t probed = 0;
    while (probed < t->capacity) {
        uint8_t* slot = t->slots + idx * stride;
        if (!t->filled[idx]) {
            return NULL;
        }
        if (memcmp(slot, key, (size_t)t->keylen) == 0) {
            return slot + t->keylen;
        }
        idx = (idx + 1) & (t->capacity - 1);
        probed++;
    }
    return NULL;
}

#endif /* INKFUSE_RUNTIME_H */
`
