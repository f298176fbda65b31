package collector

import (
	"context"
	"fmt"

	"StickerRadar/pkg/model"
)

// BundleFetcher 价格数据获取接口
// 返回按商品名称（规范化键）索引的市场快照；允许上游只返回请求集合的子集，
// 缺失的商品由调用方保留上一份缓存快照
type BundleFetcher interface {
	Fetch(ctx context.Context, goodNames map[string]struct{}) (map[string]model.MarketSnapshot, error)
}

// UpstreamError 上游数据源错误（网络、HTTP状态、解析失败）
// 整个周期的抓取失败按本周期跳过处理，下个周期重试
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("上游数据源错误 [%s]: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
