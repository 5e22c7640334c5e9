// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package teereader provides a reader that splits a stream into lines as it is read,
// hands every complete line to a callback and keeps a bounded copy of the raw bytes.
// The worker runner wraps each of the worker's output pipes in one.
package teereader
