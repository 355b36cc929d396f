// Copyright 2026 ImageFlow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package testutil 提供 ImageFlow 测试的共享工具和辅助函数。

# 概述

testutil 包为整个项目的单元测试提供统一的辅助能力，
避免各包重复实现相似的测试基础设施。所有测试应优先使用此包
中的工具函数和 Mock 实现。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout / CancelledContext，
    自动注册 Cleanup 防止泄漏
  - 断言工具: AssertJSONEqual / AssertEventuallyTrue，
    支持超时轮询等待条件满足
  - 流式辅助: Drain / WaitForChannel，用于执行流快照通道测试
  - 数据工具: MustJSON / MustParseJSON，简化测试数据构造

# 子包

  - testutil/mocks: Mock 实现，包括 MockTextGenerator（结构化文本生成）
    与 MockImageEditor（图像编辑），均支持 Builder 模式、逐步脚本
    与错误注入
  - testutil/fixtures: 测试数据工厂，提供预置工作流、序列化样本
    与程序化生成的真实 PNG/JPEG 图像

# 使用示例

	ctx := testutil.TestContext(t)
	editor := mocks.NewMockImageEditor().WithFragments(mocks.TextFragment("done"))
	run := executor.Execute(ctx, fixtures.TinyPNG(), fixtures.PortraitWorkflow())
	snapshots := testutil.Drain(run.Snapshots())
*/
package testutil
