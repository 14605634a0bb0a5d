// Package xid 提供请求级唯一 ID 生成。
//
// 默认实现基于 [sony/sonyflake/v2]（39 位时间 + 8 位序列 + 16 位机器 ID），
// 生成的 ID 按时间趋势递增，适合日志关联与链路排查。
// 当 sonyflake 初始化失败（如容器内无法取得机器 ID）或时间分量溢出时，
// 自动降级为 UUID v4，保证 ID 生成永不失败。
//
// 时钟回拨处理：sonyflake 在检测到时钟回拨时拒绝发号，Generator 以
// retryInterval 为间隔重试，最长等待 maxWaitDuration 后降级为 UUID。
//
// [sony/sonyflake/v2]: https://github.com/sony/sonyflake
package xid
