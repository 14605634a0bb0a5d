// Package xpool 提供跨任务组/梯队的轮询池。
//
// 池是一组调度目标之上的负载均衡视图：成员可以来自不同任务组，
// 池只负责"下一个请求发给谁"，不改变成员所属任务组的降级顺序。
//
// 选择只在存活成员之间进行，存活判定委托给 Gate（通常由熔断器
// 面板实现：Open 状态的成员视为死亡）。支持三种轮转策略：
//   - round_robin：原子游标循环推进
//   - least_recently_used：选择最久未被选中的成员
//   - weighted：按静态权重加权随机
//
// 池自带后台健康循环，按固定间隔重读成员存活状态，
// 在成员死亡/复活时通过回调通知调用方。
package xpool
