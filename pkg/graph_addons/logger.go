package graph_addons

import (
	"fmt"

	"github.com/dominikbraun/graph"
	"go.uber.org/zap"
)

// LoggingGraph logs every mutation of the wrapped graph at debug level (and failed mutations at
// warn level), which is how the construction of a dependency graph can be traced with
// `LOG_LEVEL=<logger name>=debug`.
type LoggingGraph[K comparable, T any] struct {
	graph.Graph[K, T]

	Log  *zap.Logger
	Hash func(T) K
}

func NewLoggingGraph[K comparable, T any](g graph.Graph[K, T], log *zap.Logger, hash func(T) K) LoggingGraph[K, T] {
	return LoggingGraph[K, T]{Graph: g, Log: log, Hash: hash}
}

func (g LoggingGraph[K, T]) AddVertex(value T, options ...func(*graph.VertexProperties)) error {
	err := g.Graph.AddVertex(value, options...)
	vertex := zap.String("vertex", fmt.Sprint(g.Hash(value)))
	if err != nil {
		g.Log.Warn("AddVertex failed", vertex, zap.Error(err))
	} else {
		g.Log.Debug("AddVertex", vertex)
	}
	return err
}

func (g LoggingGraph[K, T]) AddEdge(sourceHash K, targetHash K, options ...func(*graph.EdgeProperties)) error {
	err := g.Graph.AddEdge(sourceHash, targetHash, options...)
	edge := zap.String("edge", fmt.Sprintf("%v -> %v", sourceHash, targetHash))
	if err != nil {
		g.Log.Warn("AddEdge failed", edge, zap.Error(err))
		return err
	}
	e, _ := g.Graph.Edge(sourceHash, targetHash)
	if e.Properties.Data == nil {
		g.Log.Debug("AddEdge", edge)
	} else {
		g.Log.Debug("AddEdge", edge, zap.Any("data", e.Properties.Data))
	}
	return nil
}

func (g LoggingGraph[K, T]) RemoveVertex(hash K) error {
	err := g.Graph.RemoveVertex(hash)
	vertex := zap.String("vertex", fmt.Sprint(hash))
	if err != nil {
		g.Log.Warn("RemoveVertex failed", vertex, zap.Error(err))
	} else {
		g.Log.Debug("RemoveVertex", vertex)
	}
	return err
}

func (g LoggingGraph[K, T]) RemoveEdge(source K, target K) error {
	err := g.Graph.RemoveEdge(source, target)
	edge := zap.String("edge", fmt.Sprintf("%v -> %v", source, target))
	if err != nil {
		g.Log.Warn("RemoveEdge failed", edge, zap.Error(err))
	} else {
		g.Log.Debug("RemoveEdge", edge)
	}
	return err
}

func (g LoggingGraph[K, T]) Clone() (graph.Graph[K, T], error) {
	cloned, err := g.Graph.Clone()
	if err != nil {
		return nil, err
	}
	return LoggingGraph[K, T]{Graph: cloned, Log: g.Log, Hash: g.Hash}, nil
}
